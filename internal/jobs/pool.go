package jobs

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/crestbank/teller/internal/domain"
)

// Embedder produces one embedding vector for a text.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// DefaultEmbedWorkers bounds concurrent embedding requests.
const DefaultEmbedWorkers = 8

// EmbedPool fans chunk embedding out across a bounded set of workers.
// Results keep the input order. The first failure cancels the remaining
// work and is returned; a partial result is never produced.
type EmbedPool struct {
	embedder Embedder
	workers  int
}

// NewEmbedPool creates an EmbedPool with the given concurrency bound.
func NewEmbedPool(embedder Embedder, workers int) *EmbedPool {
	if workers <= 0 {
		workers = DefaultEmbedWorkers
	}
	return &EmbedPool{embedder: embedder, workers: workers}
}

// EmbedChunks embeds every chunk, preserving input order in the result.
func (p *EmbedPool) EmbedChunks(ctx context.Context, chunks []domain.Chunk) ([]domain.EmbeddedChunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	results := make([]domain.EmbeddedChunk, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, chunk := range chunks {
		g.Go(func() error {
			embedding, err := p.embedder.GenerateEmbedding(gctx, chunk.Text)
			if err != nil {
				log.Printf("Embedding failed for chunk %s (ordinal %d of %s): %v", chunk.ID, chunk.Ordinal, chunk.DocumentID, err)
				return err
			}
			results[i] = domain.EmbeddedChunk{Chunk: chunk, Embedding: embedding}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

package service

import (
	"context"
	"log"
	"time"

	"github.com/crestbank/teller/internal/domain"
	"github.com/crestbank/teller/internal/telemetry"
)

// ChunkStore is the persistence surface of the vector index.
type ChunkStore interface {
	ReplaceAll(ctx context.Context, chunks []domain.EmbeddedChunk, meta domain.IndexMeta) error
	NearestNeighbors(ctx context.Context, embedding []float32, k int) ([]domain.SearchResult, error)
	GetIndexMeta(ctx context.Context) (*domain.IndexMeta, error)
}

// EmbeddingClient produces embeddings and identifies the model behind them.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	Model() string
	Dimensions() int
}

// DocumentSource loads normalized documents from a stored artifact corpus.
type DocumentSource interface {
	LoadDir(ctx context.Context, dir string) ([]domain.Document, error)
}

// ChunkEmbedder embeds a batch of chunks, preserving order.
type ChunkEmbedder interface {
	EmbedChunks(ctx context.Context, chunks []domain.Chunk) ([]domain.EmbeddedChunk, error)
}

// IndexBuilder runs the batch pipeline that turns a stored corpus into a
// queryable vector index: load, chunk, embed, persist. Every vector in one
// build comes from a single embedding model, and that identity is recorded
// alongside the index.
type IndexBuilder struct {
	source   DocumentSource
	chunker  *Chunker
	embedder ChunkEmbedder
	client   EmbeddingClient
	store    ChunkStore
}

func NewIndexBuilder(source DocumentSource, chunker *Chunker, embedder ChunkEmbedder, client EmbeddingClient, store ChunkStore) *IndexBuilder {
	return &IndexBuilder{
		source:   source,
		chunker:  chunker,
		embedder: embedder,
		client:   client,
		store:    store,
	}
}

// Build indexes the corpus under dir, replacing any previous index contents.
// An empty corpus fails with domain.ErrEmptyChunkSet before anything is
// written, leaving an existing index intact. Rebuilding from the same corpus
// is idempotent.
func (b *IndexBuilder) Build(ctx context.Context, dir string) (*domain.IndexMeta, error) {
	ctx, span := telemetry.StartSpan(ctx, "index.build", telemetry.SpanAttributes{
		Source:    dir,
		Operation: "build",
	})
	defer span.End()

	documents, err := b.source.LoadDir(ctx, dir)
	if err != nil {
		return nil, err
	}

	var chunks []domain.Chunk
	for _, doc := range documents {
		chunks = append(chunks, b.chunker.Chunk(doc)...)
	}
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyChunkSet
	}

	log.Printf("Index build: %d documents, %d chunks, embedding with %s", len(documents), len(chunks), b.client.Model())

	embedded, err := b.embedder.EmbedChunks(ctx, chunks)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	meta := domain.IndexMeta{
		EmbeddingModel: b.client.Model(),
		Dimensions:     b.client.Dimensions(),
		ChunkCount:     len(embedded),
		BuiltAt:        time.Now().UTC(),
	}

	if err := b.store.ReplaceAll(ctx, embedded, meta); err != nil {
		return nil, err
	}

	b.smokeRetrieval(ctx, embedded[0].Embedding)

	log.Printf("Index build complete: %d chunks indexed with %s", meta.ChunkCount, meta.EmbeddingModel)
	return &meta, nil
}

// smokeRetrieval runs one nearest-neighbor probe against the fresh index so
// an unusable index surfaces in the build log rather than at query time.
func (b *IndexBuilder) smokeRetrieval(ctx context.Context, embedding []float32) {
	results, err := b.store.NearestNeighbors(ctx, embedding, 1)
	if err != nil {
		log.Printf("Index smoke retrieval failed: %v", err)
		return
	}
	if len(results) == 0 {
		log.Printf("Index smoke retrieval returned no results")
		return
	}
	log.Printf("Index smoke retrieval ok: top score %.4f from %s", results[0].Score, results[0].Chunk.Source)
}

package jobs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crestbank/teller/internal/domain"
)

// countingEmbedder derives the embedding from the text so order can be
// checked, and fails on texts carrying the "fail" marker.
type countingEmbedder struct {
	calls atomic.Int64
}

func (e *countingEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if strings.HasPrefix(text, "fail") {
		return nil, errors.New("embedding backend unavailable")
	}
	n, err := strconv.Atoi(strings.TrimPrefix(text, "chunk "))
	if err != nil {
		return nil, err
	}
	return []float32{float32(n)}, nil
}

func makeChunks(n int) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			ID:         fmt.Sprintf("chunk-%d", i),
			DocumentID: "doc-1",
			Ordinal:    i,
			Text:       fmt.Sprintf("chunk %d", i),
		}
	}
	return chunks
}

func TestEmbedPool_PreservesOrder(t *testing.T) {
	embedder := &countingEmbedder{}
	pool := NewEmbedPool(embedder, 4)

	chunks := makeChunks(50)
	embedded, err := pool.EmbedChunks(context.Background(), chunks)
	require.NoError(t, err)
	require.Len(t, embedded, 50)

	for i, ec := range embedded {
		assert.Equal(t, chunks[i].ID, ec.Chunk.ID)
		require.Len(t, ec.Embedding, 1)
		assert.Equal(t, float32(i), ec.Embedding[0])
	}
	assert.Equal(t, int64(50), embedder.calls.Load())
}

func TestEmbedPool_EmptyInput(t *testing.T) {
	pool := NewEmbedPool(&countingEmbedder{}, 4)

	embedded, err := pool.EmbedChunks(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, embedded)
}

func TestEmbedPool_FailureReturnsNoPartialResult(t *testing.T) {
	embedder := &countingEmbedder{}
	pool := NewEmbedPool(embedder, 2)

	chunks := makeChunks(20)
	chunks[3].Text = "fail on purpose"

	embedded, err := pool.EmbedChunks(context.Background(), chunks)
	require.Error(t, err)
	assert.Nil(t, embedded)
}

func TestEmbedPool_FailureCancelsRemainingWork(t *testing.T) {
	firstErr := errors.New("first call fails")
	embedder := &failFirstEmbedder{err: firstErr}
	pool := NewEmbedPool(embedder, 1)

	embedded, err := pool.EmbedChunks(context.Background(), makeChunks(10))
	assert.ErrorIs(t, err, firstErr)
	assert.Nil(t, embedded)

	// With one worker the context is cancelled before any later chunk runs,
	// so nothing after the failure gets embedded.
	assert.Equal(t, int64(0), embedder.succeeded.Load())
}

func TestNewEmbedPool_DefaultWorkers(t *testing.T) {
	pool := NewEmbedPool(&countingEmbedder{}, 0)
	assert.Equal(t, DefaultEmbedWorkers, pool.workers)

	pool = NewEmbedPool(&countingEmbedder{}, -3)
	assert.Equal(t, DefaultEmbedWorkers, pool.workers)
}

// failFirstEmbedder fails its first call and honors context cancellation on
// later calls, counting the ones that still get through.
type failFirstEmbedder struct {
	err       error
	failed    atomic.Bool
	succeeded atomic.Int64
}

func (e *failFirstEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if e.failed.CompareAndSwap(false, true) {
		return nil, e.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.succeeded.Add(1)
	return []float32{0}, nil
}

//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crestbank/teller/internal/domain"
	"github.com/crestbank/teller/internal/testutil"
)

const testDims = 1536

// testVector builds a unit-ish vector dominated by one axis so cosine
// distance gives a predictable nearest-neighbor ordering.
func testVector(axis int, weight float32) []float32 {
	v := make([]float32, testDims)
	for i := range v {
		v[i] = 0.01
	}
	v[axis] = weight
	return v
}

func embeddedChunk(docID string, ordinal, axis int) domain.EmbeddedChunk {
	return domain.EmbeddedChunk{
		Chunk: domain.Chunk{
			ID:         uuid.NewString(),
			DocumentID: docID,
			Ordinal:    ordinal,
			Text:       "chunk text",
			Source:     docID,
			OriginType: domain.OriginTypeWebpage,
		},
		Embedding: testVector(axis, 1.0),
	}
}

func TestChunkRepository_ReplaceAll_RoundTrip(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkRepository(pool)

	chunks := []domain.EmbeddedChunk{
		embeddedChunk("doc-a.txt", 0, 0),
		embeddedChunk("doc-a.txt", 1, 1),
		embeddedChunk("doc-b.txt", 0, 2),
	}
	meta := domain.IndexMeta{EmbeddingModel: "text-embedding-ada-002", Dimensions: testDims}

	require.NoError(t, repo.ReplaceAll(ctx, chunks, meta))

	count, err := repo.ChunkCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	stored, err := repo.GetIndexMeta(ctx)
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-ada-002", stored.EmbeddingModel)
	assert.Equal(t, testDims, stored.Dimensions)
	assert.Equal(t, 3, stored.ChunkCount)
	assert.False(t, stored.BuiltAt.IsZero())
}

func TestChunkRepository_ReplaceAll_Idempotent(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkRepository(pool)
	meta := domain.IndexMeta{EmbeddingModel: "text-embedding-ada-002", Dimensions: testDims}

	chunks := []domain.EmbeddedChunk{
		embeddedChunk("doc-a.txt", 0, 0),
		embeddedChunk("doc-a.txt", 1, 1),
	}
	require.NoError(t, repo.ReplaceAll(ctx, chunks, meta))
	require.NoError(t, repo.ReplaceAll(ctx, chunks, meta))

	count, err := repo.ChunkCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestChunkRepository_ReplaceAll_EmptySet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkRepository(pool)
	meta := domain.IndexMeta{EmbeddingModel: "text-embedding-ada-002", Dimensions: testDims}

	// Seed a valid index, then verify an empty rebuild refuses and leaves it intact.
	require.NoError(t, repo.ReplaceAll(ctx, []domain.EmbeddedChunk{embeddedChunk("doc-a.txt", 0, 0)}, meta))

	err := repo.ReplaceAll(ctx, nil, meta)
	assert.ErrorIs(t, err, domain.ErrEmptyChunkSet)

	count, err := repo.ChunkCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestChunkRepository_NearestNeighbors(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkRepository(pool)
	meta := domain.IndexMeta{EmbeddingModel: "text-embedding-ada-002", Dimensions: testDims}

	chunks := []domain.EmbeddedChunk{
		embeddedChunk("doc-a.txt", 0, 0),
		embeddedChunk("doc-b.txt", 0, 1),
		embeddedChunk("doc-c.txt", 0, 2),
	}
	require.NoError(t, repo.ReplaceAll(ctx, chunks, meta))

	results, err := repo.NearestNeighbors(ctx, testVector(1, 1.0), 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "doc-b.txt", results[0].Chunk.Source)
	assert.Greater(t, results[0].Score, results[1].Score)
	for _, r := range results {
		assert.Greater(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}
}

func TestChunkRepository_GetIndexMeta_NotBuilt(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkRepository(pool)

	_, err := repo.GetIndexMeta(ctx)
	assert.ErrorIs(t, err, domain.ErrIndexNotBuilt)
}

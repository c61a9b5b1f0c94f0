package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/crestbank/teller/internal/domain"
)

type stubSource struct {
	docs []domain.Document
	err  error
}

func (s *stubSource) LoadDir(ctx context.Context, dir string) ([]domain.Document, error) {
	return s.docs, s.err
}

type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) EmbedChunks(ctx context.Context, chunks []domain.Chunk) ([]domain.EmbeddedChunk, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.EmbeddedChunk, len(chunks))
	for i, c := range chunks {
		out[i] = domain.EmbeddedChunk{Chunk: c, Embedding: []float32{float32(i)}}
	}
	return out, nil
}

func indexDocs() []domain.Document {
	return []domain.Document{
		{
			ID:             "accounts.txt",
			SourceFilename: "accounts.txt",
			OriginType:     domain.OriginTypeWebpage,
			RawText:        "Everyday Saver offers no monthly fees.",
		},
		{
			ID:             "rates.pdf#page-1",
			SourceFilename: "rates.pdf",
			OriginType:     domain.OriginTypePDF,
			PageNumber:     1,
			RawText:        "Bonus interest applies up to 50,000.",
		},
	}
}

func TestIndexBuilder_Build(t *testing.T) {
	store := new(MockChunkStore)
	client := new(MockEmbeddingClient)

	client.On("Model").Return("text-embedding-ada-002")
	client.On("Dimensions").Return(1536)

	var persisted []domain.EmbeddedChunk
	store.On("ReplaceAll", mock.Anything, mock.MatchedBy(func(chunks []domain.EmbeddedChunk) bool {
		persisted = chunks
		return true
	}), mock.MatchedBy(func(meta domain.IndexMeta) bool {
		return meta.EmbeddingModel == "text-embedding-ada-002" &&
			meta.Dimensions == 1536 &&
			meta.ChunkCount == 2
	})).Return(nil)
	store.On("NearestNeighbors", mock.Anything, mock.Anything, 1).Return([]domain.SearchResult{
		{Chunk: domain.Chunk{Source: "accounts.txt"}, Score: 1.0},
	}, nil)

	builder := NewIndexBuilder(&stubSource{docs: indexDocs()}, NewChunker(DefaultChunkConfig()), &stubEmbedder{}, client, store)

	meta, err := builder.Build(context.Background(), "data")
	require.NoError(t, err)

	assert.Equal(t, "text-embedding-ada-002", meta.EmbeddingModel)
	assert.Equal(t, 2, meta.ChunkCount)

	// Exactly one embedded chunk per source chunk, order preserved.
	require.Len(t, persisted, 2)
	assert.Equal(t, "accounts.txt", persisted[0].Chunk.DocumentID)
	assert.Equal(t, "rates.pdf#page-1", persisted[1].Chunk.DocumentID)
	for _, ec := range persisted {
		assert.NotNil(t, ec.Embedding)
	}

	store.AssertExpectations(t)
}

func TestIndexBuilder_Build_EmptyCorpus(t *testing.T) {
	store := new(MockChunkStore)
	client := new(MockEmbeddingClient)

	builder := NewIndexBuilder(&stubSource{}, NewChunker(DefaultChunkConfig()), &stubEmbedder{}, client, store)

	_, err := builder.Build(context.Background(), "data")
	assert.ErrorIs(t, err, domain.ErrEmptyChunkSet)

	// Nothing may be written when the corpus is empty.
	store.AssertNotCalled(t, "ReplaceAll")
}

func TestIndexBuilder_Build_EmbeddingFailure(t *testing.T) {
	store := new(MockChunkStore)
	client := new(MockEmbeddingClient)

	client.On("Model").Return("text-embedding-ada-002")

	embedErr := errors.New("rate limited")
	builder := NewIndexBuilder(&stubSource{docs: indexDocs()}, NewChunker(DefaultChunkConfig()), &stubEmbedder{err: embedErr}, client, store)

	_, err := builder.Build(context.Background(), "data")
	assert.ErrorIs(t, err, embedErr)
	store.AssertNotCalled(t, "ReplaceAll")
}

func TestIndexBuilder_Build_LoadFailure(t *testing.T) {
	store := new(MockChunkStore)
	client := new(MockEmbeddingClient)

	loadErr := errors.New("no such directory")
	builder := NewIndexBuilder(&stubSource{err: loadErr}, NewChunker(DefaultChunkConfig()), &stubEmbedder{}, client, store)

	_, err := builder.Build(context.Background(), "data")
	assert.ErrorIs(t, err, loadErr)
}

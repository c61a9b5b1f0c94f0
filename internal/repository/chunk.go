package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/crestbank/teller/internal/domain"
)

// ChunkRepository persists the vector index: the embedded chunks and the
// single index_meta row recording the embedding model they were built with.
type ChunkRepository struct {
	pool *pgxpool.Pool
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{pool: pool}
}

// ReplaceAll atomically swaps the index contents: existing chunks are
// deleted, the new embedded chunks inserted, and index_meta updated, all in
// one transaction. Rebuilding from the same corpus is idempotent.
func (r *ChunkRepository) ReplaceAll(ctx context.Context, chunks []domain.EmbeddedChunk, meta domain.IndexMeta) error {
	if len(chunks) == 0 {
		return domain.ErrEmptyChunkSet
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM chunks`); err != nil {
		return err
	}

	for _, ec := range chunks {
		c := ec.Chunk
		_, err := tx.Exec(ctx,
			`INSERT INTO chunks
				(id, document_id, ordinal, content, source, origin_type, origin_url, page_number, embedding)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			c.ID,
			c.DocumentID,
			c.Ordinal,
			c.Text,
			c.Source,
			string(c.OriginType),
			nullableString(c.OriginURL),
			c.PageNumber,
			pgvector.NewVector(ec.Embedding),
		)
		if err != nil {
			return err
		}
	}

	builtAt := meta.BuiltAt
	if builtAt.IsZero() {
		builtAt = time.Now().UTC()
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO index_meta (id, embedding_model, dimensions, chunk_count, built_at)
		 VALUES (1, $1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET
			embedding_model = EXCLUDED.embedding_model,
			dimensions = EXCLUDED.dimensions,
			chunk_count = EXCLUDED.chunk_count,
			built_at = EXCLUDED.built_at`,
		meta.EmbeddingModel, meta.Dimensions, len(chunks), builtAt,
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// NearestNeighbors returns the k chunks closest to the query embedding by
// cosine distance, best first. Scores map distance to (0, 1] via 1/(1+d).
func (r *ChunkRepository) NearestNeighbors(ctx context.Context, embedding []float32, k int) ([]domain.SearchResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, document_id, ordinal, content, source, origin_type, origin_url, page_number,
			embedding <=> $1 AS distance
		 FROM chunks
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		pgvector.NewVector(embedding), k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var c domain.Chunk
		var originType string
		var originURL *string
		var distance float64
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Ordinal, &c.Text, &c.Source, &originType, &originURL, &c.PageNumber, &distance); err != nil {
			return nil, err
		}
		c.OriginType = domain.OriginType(originType)
		if originURL != nil {
			c.OriginURL = *originURL
		}
		results = append(results, domain.SearchResult{
			Chunk: c,
			Score: 1.0 / (1.0 + distance),
		})
	}
	return results, rows.Err()
}

// GetIndexMeta returns the recorded index identity, or domain.ErrIndexNotBuilt
// when no index has ever been built.
func (r *ChunkRepository) GetIndexMeta(ctx context.Context) (*domain.IndexMeta, error) {
	var meta domain.IndexMeta
	err := r.pool.QueryRow(ctx,
		`SELECT embedding_model, dimensions, chunk_count, built_at FROM index_meta WHERE id = 1`,
	).Scan(&meta.EmbeddingModel, &meta.Dimensions, &meta.ChunkCount, &meta.BuiltAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIndexNotBuilt
		}
		return nil, err
	}
	return &meta, nil
}

// ChunkCount reports the number of indexed chunks.
func (r *ChunkRepository) ChunkCount(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

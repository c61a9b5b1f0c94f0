package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crestbank/teller/internal/domain"
)

// ManifestRepository persists the append-only acquisition manifest. Rows are
// never updated or deleted; re-fetching known content appends another row
// pointing at the already-stored filename.
type ManifestRepository struct {
	db dbtx
}

func NewManifestRepository(pool *pgxpool.Pool) *ManifestRepository {
	return &ManifestRepository{db: pool}
}

func NewManifestRepositoryWithTx(tx pgx.Tx) *ManifestRepository {
	return &ManifestRepository{db: tx}
}

// Append records one acquisition outcome.
func (r *ManifestRepository) Append(ctx context.Context, e *domain.ManifestEntry) error {
	if err := domain.ValidateManifestEntry(e); err != nil {
		return err
	}
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO manifest_entries (source_url, content_hash, stored_filename, size_bytes, http_status, fetched_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.SourceURL, e.ContentHash, e.StoredFilename, e.SizeBytes, e.HTTPStatus, ts,
	)
	return err
}

// FindFilenameByHash returns the stored filename for a content hash, or
// domain.ErrArtifactNotFound when the hash has never been stored.
func (r *ManifestRepository) FindFilenameByHash(ctx context.Context, hash string) (string, error) {
	var filename string
	err := r.db.QueryRow(ctx,
		`SELECT stored_filename FROM manifest_entries WHERE content_hash = $1 ORDER BY id LIMIT 1`,
		hash,
	).Scan(&filename)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrArtifactNotFound
		}
		return "", err
	}
	return filename, nil
}

// Entries lists the full manifest in append order.
func (r *ManifestRepository) Entries(ctx context.Context) ([]domain.ManifestEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT source_url, content_hash, stored_filename, size_bytes, http_status, fetched_at
		 FROM manifest_entries ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.ManifestEntry
	for rows.Next() {
		var e domain.ManifestEntry
		if err := rows.Scan(&e.SourceURL, &e.ContentHash, &e.StoredFilename, &e.SizeBytes, &e.HTTPStatus, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

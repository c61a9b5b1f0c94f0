package cli

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crestbank/teller/internal/config"
	"github.com/crestbank/teller/internal/contentstore"
	"github.com/crestbank/teller/internal/repository"
	"github.com/crestbank/teller/internal/storage"
)

// newStore wires the content store with its Postgres manifest and, when
// configured, an S3 mirror for stored artifacts.
func newStore(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (*contentstore.Store, error) {
	manifestRepo := repository.NewManifestRepository(pool)

	store, err := contentstore.New(cfg.DataDir, manifestRepo)
	if err != nil {
		return nil, err
	}

	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		store = store.WithMirror(&s3Mirror{client: s3Client})
	}

	return store, nil
}

type s3Mirror struct {
	client *storage.S3Client
}

func (m *s3Mirror) PutObject(ctx context.Context, key, contentType string, body []byte) error {
	return m.client.PutObject(ctx, key, contentType, bytes.NewReader(body))
}

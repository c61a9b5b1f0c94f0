package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/crestbank/teller/internal/config"
	"github.com/crestbank/teller/internal/database"
	"github.com/crestbank/teller/internal/jobs"
	"github.com/crestbank/teller/internal/loader"
	"github.com/crestbank/teller/internal/openai"
	"github.com/crestbank/teller/internal/repository"
	"github.com/crestbank/teller/internal/service"
)

// IndexCmd returns the index command
func IndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the vector index from the stored corpus",
		Long: `Load every stored artifact, chunk the documents, embed every chunk, and
replace the persisted vector index. The embedding model identity is recorded
with the index; the chat server refuses to query an index built with a
different model.`,
		RunE: runIndex,
	}

	cmd.Flags().String("data-dir", "", "Corpus directory (default: TELLER_DATA_DIR)")
	cmd.Flags().Int("chunk-size", 1000, "Maximum chunk size in characters")
	cmd.Flags().Int("chunk-overlap", 200, "Overlap between consecutive chunks in characters")
	cmd.Flags().Int("workers", jobs.DefaultEmbedWorkers, "Concurrent embedding requests")

	return cmd
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.EmbeddingKey() == "" {
		return fmt.Errorf("TELLER_OPENAI_API_KEY or TELLER_EMBEDDING_API_KEY is required to build the index")
	}

	dataDir, _ := cmd.Flags().GetString("data-dir")
	if dataDir == "" {
		dataDir = cfg.DataDir
	}
	chunkSize, _ := cmd.Flags().GetInt("chunk-size")
	chunkOverlap, _ := cmd.Flags().GetInt("chunk-overlap")
	workers, _ := cmd.Flags().GetInt("workers")

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := runMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	embeddingClient := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.EmbeddingKey(),
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	})

	builder := service.NewIndexBuilder(
		loader.NewRegistry(),
		service.NewChunker(service.ChunkConfig{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}),
		jobs.NewEmbedPool(embeddingClient, workers),
		embeddingClient,
		repository.NewChunkRepository(pool),
	)

	started := time.Now()
	meta, err := builder.Build(ctx, dataDir)
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}

	log.Printf("index built in %s: %d chunks, model %s", time.Since(started).Round(time.Second), meta.ChunkCount, meta.EmbeddingModel)
	return nil
}

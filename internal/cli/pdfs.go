package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/crestbank/teller/internal/config"
	"github.com/crestbank/teller/internal/contentstore"
	"github.com/crestbank/teller/internal/crawler"
	"github.com/crestbank/teller/internal/database"
)

// PDFsCmd returns the pdfs command
func PDFsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pdfs [url...]",
		Short: "Download PDF documents into the content store",
		Long:  "Download the given PDF URLs, deduplicate by content hash, and record each acquisition in the manifest.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runPDFs,
	}

	cmd.Flags().Int64("max-size", crawler.DefaultMaxPDFSize, "Maximum PDF size in bytes; larger transfers are aborted")

	return cmd
}

func runPDFs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	maxSize, _ := cmd.Flags().GetInt64("max-size")

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := runMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	store, err := newStore(ctx, cfg, pool)
	if err != nil {
		return err
	}

	fetcher := crawler.NewPDFFetcher(crawler.PDFFetcherConfig{
		MaxFileSize:       maxSize,
		UserAgent:         defaultUserAgent,
		InterRequestDelay: time.Second,
	})

	fetchPDFs(ctx, fetcher, store, dedupeLinks(args))
	return nil
}

// fetchPDFs downloads each URL and stores the result. A failed download is
// logged and skipped; it never aborts the batch.
func fetchPDFs(ctx context.Context, fetcher *crawler.PDFFetcher, store *contentstore.Store, urls []string) {
	stored := 0
	for _, docURL := range urls {
		artifact, err := fetcher.Fetch(ctx, docURL)
		if err != nil {
			log.Printf("pdfs: skipping %s: %v", docURL, err)
			continue
		}

		filename, err := store.Put(ctx, artifact.SourceURL, artifact.MediaType, http.StatusOK, artifact.Bytes)
		if err != nil {
			log.Printf("pdfs: failed to store %s: %v", docURL, err)
			continue
		}
		stored++
		log.Printf("pdfs: stored %s as %s", docURL, filename)
	}
	log.Printf("pdfs: %d of %d documents stored", stored, len(urls))
}

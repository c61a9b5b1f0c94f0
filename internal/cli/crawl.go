package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/crestbank/teller/internal/config"
	"github.com/crestbank/teller/internal/crawler"
	"github.com/crestbank/teller/internal/database"
)

const defaultUserAgent = "Mozilla/5.0 (compatible; teller/1.0)"

// CrawlCmd returns the crawl command
func CrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl seed URLs and store page text artifacts",
		Long: `Crawl breadth-first from the seed URLs, extract visible page text, and
store each accepted page in the content store. PDF links discovered during
the crawl are downloaded afterwards.`,
		RunE: runCrawl,
	}

	cmd.Flags().StringSlice("seed", nil, "Seed URL to start crawling from (repeatable)")
	cmd.Flags().String("host-suffix", "", "Only follow links whose host ends with this suffix (default: host of first seed)")
	cmd.Flags().StringSlice("allow", nil, "Only follow paths containing one of these patterns")
	cmd.Flags().StringSlice("deny", nil, "Never follow paths containing one of these patterns")
	cmd.Flags().Int("max-pages", 500, "Maximum number of pages to store")
	cmd.Flags().Bool("skip-pdfs", false, "Do not download PDF links discovered during the crawl")
	cmd.MarkFlagRequired("seed")

	return cmd
}

func runCrawl(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	seeds, _ := cmd.Flags().GetStringSlice("seed")
	hostSuffix, _ := cmd.Flags().GetString("host-suffix")
	allow, _ := cmd.Flags().GetStringSlice("allow")
	deny, _ := cmd.Flags().GetStringSlice("deny")
	maxPages, _ := cmd.Flags().GetInt("max-pages")
	skipPDFs, _ := cmd.Flags().GetBool("skip-pdfs")

	if hostSuffix == "" {
		u, err := url.Parse(seeds[0])
		if err != nil || u.Hostname() == "" {
			return fmt.Errorf("invalid seed URL: %s", seeds[0])
		}
		hostSuffix = u.Hostname()
	}

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

	var pdfLinks []string
	c := crawler.New(crawler.Policy{
		AllowedHostSuffix: hostSuffix,
		PathAllowList:     allow,
		PathDenyList:      deny,
		MaxPages:          maxPages,
		UserAgent:         defaultUserAgent,
		OnPDFLink: func(link string) {
			pdfLinks = append(pdfLinks, link)
		},
	})

	stored := 0
	for artifact := range c.Discover(ctx, seeds) {
		filename, err := store.Put(ctx, artifact.SourceURL, artifact.MediaType, http.StatusOK, artifact.Bytes)
		if err != nil {
			log.Printf("crawl: failed to store %s: %v", artifact.SourceURL, err)
			continue
		}
		stored++
		log.Printf("crawl: stored %s as %s", artifact.SourceURL, filename)
	}
	log.Printf("crawl: %d pages stored", stored)

	if skipPDFs || len(pdfLinks) == 0 {
		return nil
	}

	log.Printf("crawl: downloading %d discovered PDF links", len(pdfLinks))
	fetcher := crawler.NewPDFFetcher(crawler.PDFFetcherConfig{
		UserAgent:         defaultUserAgent,
		InterRequestDelay: time.Second,
	})
	fetchPDFs(ctx, fetcher, store, dedupeLinks(pdfLinks))
	return nil
}

func dedupeLinks(links []string) []string {
	seen := make(map[string]bool, len(links))
	var out []string
	for _, link := range links {
		if seen[link] {
			continue
		}
		seen[link] = true
		out = append(out, link)
	}
	return out
}

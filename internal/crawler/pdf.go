package crawler

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/crestbank/teller/internal/domain"
)

const (
	// DefaultMaxPDFSize caps a single PDF transfer.
	DefaultMaxPDFSize = 100 * 1024 * 1024

	defaultPDFRetries = 2
)

// PDFFetcherConfig configures curated PDF acquisition.
type PDFFetcherConfig struct {
	MaxFileSize       int64
	Retries           int
	RequestTimeout    time.Duration
	InterRequestDelay time.Duration
	UserAgent         string
}

// PDFFetcher downloads direct document URLs with a size ceiling. Content is
// streamed and hashed incrementally, so an oversized transfer is aborted
// without buffering more than the ceiling.
type PDFFetcher struct {
	cfg     PDFFetcherConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewPDFFetcher creates a PDFFetcher, applying defaults for unset bounds.
func NewPDFFetcher(cfg PDFFetcherConfig) *PDFFetcher {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxPDFSize
	}
	if cfg.Retries <= 0 {
		cfg.Retries = defaultPDFRetries
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.InterRequestDelay <= 0 {
		cfg.InterRequestDelay = time.Second
	}

	return &PDFFetcher{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		limiter: rate.NewLimiter(rate.Every(cfg.InterRequestDelay), 1),
	}
}

// Fetch downloads one PDF URL, retrying transient failures.
func (f *PDFFetcher) Fetch(ctx context.Context, docURL string) (*domain.RawArtifact, error) {
	if size, ok := f.headContentLength(ctx, docURL); ok && size > f.cfg.MaxFileSize {
		return nil, fmt.Errorf("declared size %d exceeds ceiling %d", size, f.cfg.MaxFileSize)
	}

	var lastErr error
	for attempt := 1; attempt <= f.cfg.Retries; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		artifact, err := f.download(ctx, docURL)
		if err == nil {
			return artifact, nil
		}
		lastErr = err
		log.Printf("pdf fetch: attempt %d failed for %s: %v", attempt, docURL, err)
	}

	return nil, lastErr
}

// headContentLength performs a cheap HEAD pre-check; failures are ignored
// and the download proceeds.
func (f *PDFFetcher) headContentLength(ctx context.Context, docURL string) (int64, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, docURL, nil)
	if err != nil {
		return 0, false
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, false
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		return 0, false
	}

	size, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	if err != nil {
		return 0, false
	}
	return size, true
}

func (f *PDFFetcher) download(ctx context.Context, docURL string) (*domain.RawArtifact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return nil, err
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &statusError{status: resp.StatusCode}
	}

	hasher := sha256.New()
	var buf bytes.Buffer

	// Read at most one byte past the ceiling to detect oversize without
	// buffering the rest of the transfer.
	limited := io.LimitReader(resp.Body, f.cfg.MaxFileSize+1)
	n, err := io.Copy(io.MultiWriter(hasher, &buf), limited)
	if err != nil {
		return nil, fmt.Errorf("transfer failed after %d bytes: %w", n, err)
	}
	if n > f.cfg.MaxFileSize {
		return nil, fmt.Errorf("transfer exceeds size ceiling %d, aborted", f.cfg.MaxFileSize)
	}

	return &domain.RawArtifact{
		ContentHash: hex.EncodeToString(hasher.Sum(nil)),
		SourceURL:   docURL,
		MediaType:   domain.MediaTypePDF,
		Bytes:       buf.Bytes(),
		FetchedAt:   time.Now().UTC(),
	}, nil
}

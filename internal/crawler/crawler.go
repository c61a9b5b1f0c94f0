// Package crawler acquires raw artifacts: HTML page text via a breadth-first
// site crawl and PDF documents via a curated download list.
package crawler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/crestbank/teller/internal/domain"
)

// Policy bounds a crawl. A link is followed only if its scheme is http(s),
// its host ends in AllowedHostSuffix, its path matches an allow pattern and
// no deny pattern, and it has not been visited or queued.
type Policy struct {
	AllowedHostSuffix string
	PathAllowList     []string
	PathDenyList      []string
	MaxPages          int
	PerPageLinkLimit  int
	RequestTimeout    time.Duration
	InterRequestDelay time.Duration
	MinTextLength     int
	UserAgent         string

	// OnPDFLink is invoked for every PDF link discovered on a crawled page,
	// so PDF acquisition can feed off the same traversal.
	OnPDFLink func(url string)
}

// Crawler performs a breadth-first traversal over a work queue seeded with
// the start URLs, emitting one RawArtifact per accepted page.
type Crawler struct {
	policy  Policy
	client  *http.Client
	limiter *rate.Limiter
}

// New creates a Crawler with the given policy, applying defaults for any
// unset bounds.
func New(policy Policy) *Crawler {
	if policy.MaxPages <= 0 {
		policy.MaxPages = 500
	}
	if policy.PerPageLinkLimit <= 0 {
		policy.PerPageLinkLimit = 20
	}
	if policy.RequestTimeout <= 0 {
		policy.RequestTimeout = 10 * time.Second
	}
	if policy.InterRequestDelay <= 0 {
		policy.InterRequestDelay = 100 * time.Millisecond
	}
	if policy.MinTextLength <= 0 {
		policy.MinTextLength = 100
	}

	return &Crawler{
		policy: policy,
		client: &http.Client{
			Timeout: policy.RequestTimeout,
		},
		limiter: rate.NewLimiter(rate.Every(policy.InterRequestDelay), 1),
	}
}

// Discover crawls breadth-first from the seed URLs and sends accepted
// artifacts on the returned channel. The sequence is lazy, finite, and
// non-restartable: it is exhausted after one consumption. Fetch failures are
// logged and skipped; they never abort the crawl.
func (c *Crawler) Discover(ctx context.Context, seeds []string) <-chan domain.RawArtifact {
	out := make(chan domain.RawArtifact)

	go func() {
		defer close(out)

		visited := make(map[string]bool)
		queued := make(map[string]bool)
		queue := make([]string, 0, len(seeds))
		for _, seed := range seeds {
			if !queued[seed] {
				queued[seed] = true
				queue = append(queue, seed)
			}
		}

		accepted := 0
		for len(queue) > 0 && accepted < c.policy.MaxPages {
			pageURL := queue[0]
			queue = queue[1:]

			if visited[pageURL] {
				continue
			}
			visited[pageURL] = true

			if err := c.limiter.Wait(ctx); err != nil {
				return
			}

			artifact, links, err := c.fetchPage(ctx, pageURL)
			if err != nil {
				log.Printf("crawl: skipping %s: %v", pageURL, err)
				continue
			}

			if artifact != nil {
				accepted++
				select {
				case out <- *artifact:
				case <-ctx.Done():
					return
				}
			}

			added := 0
			for _, link := range links {
				if added >= c.policy.PerPageLinkLimit {
					break
				}
				if visited[link] || queued[link] {
					continue
				}
				if !c.shouldFollow(link) {
					continue
				}
				queued[link] = true
				queue = append(queue, link)
				added++
			}
		}

		log.Printf("crawl: finished with %d accepted pages, %d visited", accepted, len(visited))
	}()

	return out
}

// fetchPage retrieves one URL and returns the page artifact (nil when the
// page is rejected by content checks) plus the absolute links found on it.
func (c *Crawler) fetchPage(ctx context.Context, pageURL string) (*domain.RawArtifact, []string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, nil, err
	}
	if c.policy.UserAgent != "" {
		req.Header.Set("User-Agent", c.policy.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, nil, &statusError{status: resp.StatusCode}
	}

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/html") {
		return nil, nil, &contentTypeError{contentType: ct}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	links := c.extractLinks(doc, pageURL)

	text := extractText(doc)
	if len(text) < c.policy.MinTextLength {
		// Too little visible text to be a useful document; links still count.
		return nil, links, nil
	}

	// The source URL is written as the first line so loaders can recover
	// provenance from the stored file alone.
	body := []byte(pageURL + "\n\n" + text)
	sum := sha256.Sum256(body)

	return &domain.RawArtifact{
		ContentHash: hex.EncodeToString(sum[:]),
		SourceURL:   pageURL,
		MediaType:   domain.MediaTypeHTML,
		Bytes:       body,
		FetchedAt:   time.Now().UTC(),
	}, links, nil
}

// extractLinks resolves every anchor on the page to an absolute URL,
// routing PDF links to the policy callback instead of the crawl queue.
func (c *Crawler) extractLinks(doc *goquery.Document, base string) []string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}

		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := baseURL.ResolveReference(ref)
		abs.Fragment = ""

		if strings.HasSuffix(strings.ToLower(abs.Path), ".pdf") {
			if c.policy.OnPDFLink != nil && c.hostAllowed(abs) {
				c.policy.OnPDFLink(abs.String())
			}
			return
		}

		links = append(links, abs.String())
	})

	return links
}

// shouldFollow applies the crawl policy to a candidate link.
func (c *Crawler) shouldFollow(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	if !c.hostAllowed(u) {
		return false
	}

	path := strings.ToLower(u.Path)

	allowed := len(c.policy.PathAllowList) == 0
	for _, pattern := range c.policy.PathAllowList {
		if strings.Contains(path, pattern) {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}

	for _, pattern := range c.policy.PathDenyList {
		if strings.Contains(path, pattern) {
			return false
		}
	}

	return true
}

func (c *Crawler) hostAllowed(u *url.URL) bool {
	if c.policy.AllowedHostSuffix == "" {
		return true
	}
	return strings.HasSuffix(u.Hostname(), c.policy.AllowedHostSuffix)
}

// extractText pulls the visible text out of an HTML document, dropping
// script, style, and chrome elements and collapsing blank runs.
func extractText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, footer, header").Remove()

	sel := doc.Find("body")
	if sel.Length() == 0 {
		sel = doc.Selection
	}

	lines := strings.Split(sel.Text(), "\n")
	var b strings.Builder
	blank := true
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank {
				b.WriteString("\n")
				blank = true
			}
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(line)
		blank = false
	}

	return strings.TrimSpace(b.String())
}

type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.status)
}

type contentTypeError struct {
	contentType string
}

func (e *contentTypeError) Error() string {
	return fmt.Sprintf("unsupported content type %q", e.contentType)
}

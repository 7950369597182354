// Package google scrapes result URLs from a Google-compatible HTML search page.
package google

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"rubik/internal/errors"
	"rubik/ports"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Config holds provider settings
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Provider implements ports.SearchProvider by fetching result pages and collecting
// the outbound result links
type Provider struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewProvider creates a search provider
func NewProvider(config Config, logger *zap.Logger) *Provider {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &Provider{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
		sleep:      sleepContext,
	}
}

var _ ports.SearchProvider = (*Provider)(nil)

// Search collects up to opts.Stop unique result URLs (opts.NumResults when Stop is
// unset), requesting opts.NumResults per page and pausing opts.Pause between pages
func (p *Provider) Search(ctx context.Context, query string, opts ports.SearchOptions) ([]string, error) {
	limit := opts.Stop
	if limit <= 0 {
		limit = opts.NumResults
	}
	perPage := opts.NumResults
	if perPage <= 0 {
		perPage = 10
	}

	seen := make(map[string]struct{})
	var results []string
	start := 0

	for len(results) < limit {
		if start > 0 && opts.Pause > 0 {
			if err := p.sleep(ctx, opts.Pause); err != nil {
				return nil, errors.ExternalServiceError("search", err)
			}
		}

		links, err := p.fetchPage(ctx, p.buildURL(query, opts.Lang, perPage, start))
		if err != nil {
			return nil, errors.ExternalServiceError("search", err)
		}

		added := 0
		for _, link := range links {
			if _, dup := seen[link]; dup {
				continue
			}
			seen[link] = struct{}{}
			results = append(results, link)
			added++
			if len(results) == limit {
				break
			}
		}
		if added == 0 {
			break
		}
		start += perPage
	}

	p.logger.Debug("search completed", zap.String("query", query), zap.Int("results", len(results)))
	return results, nil
}

// buildURL constructs the request URL with paging parameters
func (p *Provider) buildURL(query, lang string, num, start int) string {
	params := url.Values{}
	params.Set("q", query)
	params.Set("num", strconv.Itoa(num))
	if lang != "" {
		params.Set("hl", lang)
	}
	if start > 0 {
		params.Set("start", strconv.Itoa(start))
	}
	sep := "?"
	if strings.Contains(p.config.BaseURL, "?") {
		sep = "&"
	}
	return p.config.BaseURL + sep + params.Encode()
}

func (p *Provider) fetchPage(ctx context.Context, pageURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if p.config.UserAgent != "" {
		req.Header.Set("User-Agent", p.config.UserAgent)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("HTTP Error 429: Too Many Requests")
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("HTTP Error %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse results page: %w", err)
	}
	return extractLinks(doc, resp.Request.URL), nil
}

// extractLinks returns result links in page order. Redirect links (/url?q=...) are
// unwrapped; links back to the search host are dropped.
func extractLinks(doc *goquery.Document, pageURL *url.URL) []string {
	var links []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if link, ok := resultLink(href, pageURL); ok {
			links = append(links, link)
		}
	})
	return links
}

func resultLink(href string, pageURL *url.URL) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}

	if u.Path == "/url" && (u.Host == "" || u.Host == pageURL.Host) {
		target := u.Query().Get("q")
		if target == "" {
			target = u.Query().Get("url")
		}
		return resultLink(target, pageURL)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Host == "" || u.Host == pageURL.Host || isGoogleHost(u.Host) {
		return "", false
	}
	return u.String(), true
}

func isGoogleHost(host string) bool {
	host = strings.ToLower(host)
	return host == "google.com" || strings.HasSuffix(host, ".google.com") ||
		strings.Contains(host, ".google.") || strings.HasPrefix(host, "google.")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

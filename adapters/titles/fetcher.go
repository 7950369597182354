// Package titles resolves the <title> of search result pages.
package titles

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"rubik/internal/metrics"
	"rubik/models"
	"rubik/ports"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

// maxBody caps how much of a page is read looking for its title
const maxBody = 2 << 20

// Fetcher implements ports.TitleFetcher over HTTP
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	logger     *zap.Logger
}

// NewFetcher creates a fetcher whose requests give up after timeout
func NewFetcher(timeout time.Duration, userAgent string, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		logger:     logger,
	}
}

var _ ports.TitleFetcher = (*Fetcher)(nil)

// FetchTitle never fails. Network errors and non-2xx answers give
// models.TitleFetchFailed, a missing or blank <title> gives models.TitleNotFound and an
// undecodable body gives models.TitleParseFailed.
func (f *Fetcher) FetchTitle(ctx context.Context, url string) string {
	title, outcome := f.fetch(ctx, url)
	metrics.TitleFetches.WithLabelValues(outcome).Inc()
	return title
}

func (f *Fetcher) fetch(ctx context.Context, url string) (string, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		f.logger.Debug("title request build failed", zap.String("url", url), zap.Error(err))
		return models.TitleFetchFailed, "fetch_failed"
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.Debug("title fetch failed", zap.String("url", url), zap.Error(err))
		return models.TitleFetchFailed, "fetch_failed"
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.logger.Debug("title fetch bad status", zap.String("url", url), zap.Int("status", resp.StatusCode))
		return models.TitleFetchFailed, "fetch_failed"
	}

	// a read error is a transport failure, not a parse failure
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		f.logger.Debug("title body read failed", zap.String("url", url), zap.Error(err))
		return models.TitleFetchFailed, "fetch_failed"
	}

	body, err := charset.NewReader(bytes.NewReader(data), resp.Header.Get("Content-Type"))
	if err != nil {
		f.logger.Debug("title charset detection failed", zap.String("url", url), zap.Error(err))
		return models.TitleParseFailed, "parse_failed"
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		f.logger.Debug("title parse failed", zap.String("url", url), zap.Error(err))
		return models.TitleParseFailed, "parse_failed"
	}

	title := strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
	if title == "" {
		return models.TitleNotFound, "not_found"
	}
	return title, "ok"
}

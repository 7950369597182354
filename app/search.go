package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"rubik/internal/metrics"
	"rubik/internal/pagination"
	"rubik/internal/session"
	"rubik/models"
	"rubik/ports"

	"go.uber.org/zap"
)

const (
	// ResultsPerPage is the search results page size
	ResultsPerPage = 5

	// SearchPageTitle labels the search page
	SearchPageTitle = "Web Search"

	MsgEmptyQuery = "Please enter a search term."
)

// SearchRequest is one hit on the search page
type SearchRequest struct {
	// Submitted is true for a POST carrying a (possibly blank) query
	Submitted bool
	Query     string

	// Page and HasPage come from the ?page= parameter of a GET
	Page    string
	HasPage bool
}

// SearchOutcome is everything the search page renders
type SearchOutcome struct {
	Page  pagination.Page[models.EnrichedResult]
	Query string
	Error string
	Title string
}

// SearchService runs queries against the provider, annotates each URL with its page
// title and keeps the query and page in the visitor's session
type SearchService struct {
	provider ports.SearchProvider
	titles   ports.TitleFetcher
	opts     ports.SearchOptions
	logger   *zap.Logger
}

// NewSearchService creates a search service
func NewSearchService(provider ports.SearchProvider, titles ports.TitleFetcher, opts ports.SearchOptions, logger *zap.Logger) *SearchService {
	return &SearchService{provider: provider, titles: titles, opts: opts, logger: logger}
}

// FormatProviderError renders a provider failure for the search page
func FormatProviderError(err error) string {
	return fmt.Sprintf("An error occurred during the search: %s. This could be due to network issues or search restrictions. Please try again later.", err)
}

// Run applies one request to the session state and produces the page to render.
//
//   - POST, non-blank query: remember the query, reset the page to 1, show page 1.
//   - POST, blank query: forget the query, show MsgEmptyQuery, skip the provider.
//   - GET with page: remember the page, search the remembered query.
//   - GET without page: search the remembered query at the remembered page, or render
//     the empty state when there is no remembered query.
//
// Whenever a search runs, the page actually shown is written back to the session. A
// failed search shows page 1.
func (s *SearchService) Run(ctx context.Context, sess *session.Session, req SearchRequest) *SearchOutcome {
	out := &SearchOutcome{
		Title: SearchPageTitle,
		Page:  pagination.Paginate([]models.EnrichedResult{}, ResultsPerPage, "1"),
	}

	if req.Submitted {
		query := strings.TrimSpace(req.Query)
		if query == "" {
			sess.Delete(session.KeySearchQuery)
			out.Error = MsgEmptyQuery
			return out
		}
		sess.Set(session.KeySearchQuery, query)
		sess.Set(session.KeyPage, "1")
		out.Query = query

		results, err := s.fetch(ctx, query)
		if err != nil {
			out.Error = FormatProviderError(err)
			return out
		}
		out.Page = pagination.Paginate(results, ResultsPerPage, "1")
		return out
	}

	if req.HasPage {
		sess.Set(session.KeyPage, req.Page)
	}
	query := sess.GetString(session.KeySearchQuery)
	out.Query = query
	if query == "" {
		return out
	}

	results, err := s.fetch(ctx, query)
	if err != nil {
		sess.Set(session.KeyPage, "1")
		out.Error = FormatProviderError(err)
		return out
	}
	out.Page = pagination.Paginate(results, ResultsPerPage, sess.GetString(session.KeyPage))
	sess.Set(session.KeyPage, strconv.Itoa(out.Page.Number))
	return out
}

// fetch asks the provider for URLs and resolves every title in order. A provider
// failure aborts before any title is fetched; title failures never abort.
func (s *SearchService) fetch(ctx context.Context, query string) ([]models.EnrichedResult, error) {
	urls, err := s.provider.Search(ctx, query, s.opts)
	if err != nil {
		metrics.SearchRequests.WithLabelValues("error").Inc()
		s.logger.Warn("search provider failed", zap.String("query", query), zap.Error(err))
		return nil, err
	}
	metrics.SearchRequests.WithLabelValues("ok").Inc()

	if s.opts.NumResults > 0 && len(urls) > s.opts.NumResults {
		urls = urls[:s.opts.NumResults]
	}

	results := make([]models.EnrichedResult, 0, len(urls))
	for _, u := range urls {
		results = append(results, models.EnrichedResult{URL: u, Title: s.titles.FetchTitle(ctx, u)})
	}
	return results, nil
}

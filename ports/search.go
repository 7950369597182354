package ports

import (
	"context"
	"time"
)

// SearchOptions bounds the volume of outbound provider requests
type SearchOptions struct {
	NumResults int
	Lang       string
	Stop       int
	Pause      time.Duration
}

// SearchProvider returns result URLs for a free-text query
type SearchProvider interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]string, error)
}

// TitleFetcher resolves the <title> of a page. It never fails: problems are reported
// through the sentinel titles in models.
type TitleFetcher interface {
	FetchTitle(ctx context.Context, url string) string
}

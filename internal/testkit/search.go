package testkit

import (
	"context"
	"sync"

	"rubik/ports"
)

// FakeSearchProvider returns canned URLs and records every call
type FakeSearchProvider struct {
	mu      sync.Mutex
	URLs    []string
	Err     error
	queries []string
	opts    []ports.SearchOptions
}

func (f *FakeSearchProvider) Search(_ context.Context, query string, opts ports.SearchOptions) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	f.opts = append(f.opts, opts)
	if f.Err != nil {
		return nil, f.Err
	}
	out := make([]string, len(f.URLs))
	copy(out, f.URLs)
	return out, nil
}

// Calls returns how many searches were issued
func (f *FakeSearchProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

// Queries returns the queries seen so far
func (f *FakeSearchProvider) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// LastOptions returns the options of the most recent call
func (f *FakeSearchProvider) LastOptions() ports.SearchOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.opts) == 0 {
		return ports.SearchOptions{}
	}
	return f.opts[len(f.opts)-1]
}

// FakeTitleFetcher answers from a map, falling back to Default ("Title of <url>" when empty)
type FakeTitleFetcher struct {
	mu      sync.Mutex
	Titles  map[string]string
	Default string
	fetched []string
}

func (f *FakeTitleFetcher) FetchTitle(_ context.Context, url string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, url)
	if t, ok := f.Titles[url]; ok {
		return t
	}
	if f.Default != "" {
		return f.Default
	}
	return "Title of " + url
}

// Fetched returns the URLs fetched so far in order
func (f *FakeTitleFetcher) Fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

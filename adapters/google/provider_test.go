package google

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"rubik/internal/errors"
	"rubik/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const resultsPage = `<html><body>
<a href="/search?q=next">Next</a>
<div class="g"><a href="/url?q=https://go.dev/&amp;sa=U&amp;ved=x">Go</a></div>
<div class="g"><a href="https://pkg.go.dev/fmt">fmt</a></div>
<div class="g"><a href="https://maps.google.com/place">Maps</a></div>
<div class="g"><a href="https://go.dev/">Go again</a></div>
<a href="javascript:void(0)">noop</a>
</body></html>`

func newTestProvider(url string) *Provider {
	p := NewProvider(Config{BaseURL: url, UserAgent: "rubik-test"}, zap.NewNop())
	p.sleep = func(context.Context, time.Duration) error { return nil }
	return p
}

func TestSearchExtractsResultLinks(t *testing.T) {
	var gotQuery, gotNum, gotLang, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotNum = r.URL.Query().Get("num")
		gotLang = r.URL.Query().Get("hl")
		gotUA = r.UserAgent()
		if r.URL.Query().Get("start") != "" {
			fmt.Fprint(w, "<html><body>no more</body></html>")
			return
		}
		fmt.Fprint(w, resultsPage)
	}))
	defer srv.Close()

	urls, err := newTestProvider(srv.URL).Search(context.Background(), "golang fmt",
		ports.SearchOptions{NumResults: 20, Lang: "en", Stop: 20})
	require.NoError(t, err)

	assert.Equal(t, []string{"https://go.dev/", "https://pkg.go.dev/fmt"}, urls)
	assert.Equal(t, "golang fmt", gotQuery)
	assert.Equal(t, "20", gotNum)
	assert.Equal(t, "en", gotLang)
	assert.Equal(t, "rubik-test", gotUA)
}

func TestSearchPagesUntilStopWithPause(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		var b strings.Builder
		b.WriteString("<html><body>")
		for i := 0; i < 2; i++ {
			fmt.Fprintf(&b, `<a href="https://site%d.example/">r</a>`, start+i)
		}
		b.WriteString("</body></html>")
		fmt.Fprint(w, b.String())
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	var pauses []time.Duration
	p.sleep = func(_ context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}

	urls, err := p.Search(context.Background(), "q", ports.SearchOptions{NumResults: 2, Stop: 5, Pause: time.Second})
	require.NoError(t, err)

	assert.Len(t, urls, 5)
	assert.Equal(t, "https://site4.example/", urls[4])
	assert.Equal(t, []time.Duration{time.Second, time.Second}, pauses)
}

func TestSearchTooManyRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL).Search(context.Background(), "q", ports.SearchOptions{NumResults: 20, Stop: 20})
	require.Error(t, err)
	assert.True(t, errors.IsExternal(err))
	assert.Contains(t, err.Error(), "429")
}

func TestBuildURLKeepsExistingQuery(t *testing.T) {
	p := newTestProvider("http://search.local/find?safe=off")
	u := p.buildURL("a b", "en", 20, 40)
	assert.True(t, strings.HasPrefix(u, "http://search.local/find?safe=off&"))
	assert.Contains(t, u, "q=a+b")
	assert.Contains(t, u, "start=40")
}

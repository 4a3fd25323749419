package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDDGPage = `<!DOCTYPE html>
<html><body>
<div class="serp__results">
  <div class="result results_links results_links_deep web-result">
    <h2 class="result__title">
      <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2Fblog%2Fcontext&amp;rut=abc">Go Concurrency Patterns: Context</a>
    </h2>
    <a class="result__snippet" href="https://go.dev/blog/context">In Go servers, each incoming request is handled in its own goroutine.</a>
  </div>
  <div class="result results_links results_links_deep web-result">
    <h2 class="result__title">
      <a class="result__a" href="https://go.dev/doc/effective_go">Effective Go</a>
    </h2>
    <a class="result__snippet" href="https://go.dev/doc/effective_go">Tips for writing clear, idiomatic Go code.</a>
  </div>
</div>
</body></html>`

func TestParseDuckDuckGoResults(t *testing.T) {
	results, err := parseDuckDuckGoResults(sampleDDGPage, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Redirect URL unwrapped
	assert.Equal(t, "https://go.dev/blog/context", results[0].URL)
	assert.Equal(t, "Go Concurrency Patterns: Context", results[0].Title)
	assert.Contains(t, results[0].Snippet, "goroutine")

	assert.Equal(t, "https://go.dev/doc/effective_go", results[1].URL)
}

func TestParseDuckDuckGoResultsHonorsCap(t *testing.T) {
	results, err := parseDuckDuckGoResults(sampleDDGPage, 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestDuckDuckGoSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("q"))
		w.Write([]byte(sampleDDGPage))
	}))
	defer srv.Close()

	d := NewDuckDuckGo(5 * time.Second)
	d.endpoint = srv.URL

	results, err := d.Search(context.Background(), "go context", 5)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestDuckDuckGoHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	d := NewDuckDuckGo(5 * time.Second)
	d.endpoint = srv.URL

	_, err := d.Search(context.Background(), "q", 5)
	assert.Error(t, err)
}

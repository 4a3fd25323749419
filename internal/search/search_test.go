package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider is a scripted Provider for tests.
type fakeProvider struct {
	name    string
	results []Result
	err     error
	calls   int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func TestMultiFallsThroughOnError(t *testing.T) {
	broken := &fakeProvider{name: "broken", err: errors.New("boom")}
	working := &fakeProvider{name: "working", results: []Result{{Title: "hit", URL: "https://example.com"}}}

	m := NewMulti(broken, working)
	results, err := m.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, broken.calls)
	assert.Equal(t, 1, working.calls)
}

func TestMultiFallsThroughOnEmpty(t *testing.T) {
	empty := &fakeProvider{name: "empty"}
	working := &fakeProvider{name: "working", results: []Result{{Title: "hit", URL: "https://example.com"}}}

	m := NewMulti(empty, working)
	results, err := m.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestMultiAllFail(t *testing.T) {
	a := &fakeProvider{name: "a", err: errors.New("a down")}
	b := &fakeProvider{name: "b", err: errors.New("b down")}

	_, err := NewMulti(a, b).Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b down")
}

func TestMultiNoProviders(t *testing.T) {
	_, err := NewMulti().Search(context.Background(), "q", 5)
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestCachedReusesResults(t *testing.T) {
	inner := &fakeProvider{name: "inner", results: []Result{{Title: "hit", URL: "https://example.com"}}}
	c := NewCached(inner, 10, time.Minute)

	for i := 0; i < 3; i++ {
		results, err := c.Search(context.Background(), "same query", 5)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	}
	assert.Equal(t, 1, inner.calls, "repeated query must hit the provider once")

	// Different maxResults is a different cache key.
	_, err := c.Search(context.Background(), "same query", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedExpires(t *testing.T) {
	inner := &fakeProvider{name: "inner", results: []Result{{Title: "hit", URL: "https://example.com"}}}
	c := NewCached(inner, 10, time.Millisecond)

	_, err := c.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = c.Search(context.Background(), "q", 5)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedDoesNotCacheErrors(t *testing.T) {
	inner := &fakeProvider{name: "inner", err: errors.New("down")}
	c := NewCached(inner, 10, time.Minute)

	_, err := c.Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

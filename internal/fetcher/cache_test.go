package fetcher

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingFetcher records how many requests actually leave.
type countingFetcher struct {
	calls atomic.Int32
	body  []byte
	err   error
}

func (c *countingFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.body, nil
}

func newTestCache(t *testing.T, inner Fetcher) *CachingFetcher {
	t.Helper()
	c, err := NewCachingFetcher(inner, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCacheHitSkipsSecondFetch(t *testing.T) {
	inner := &countingFetcher{body: []byte("document body")}
	c := newTestCache(t, inner)

	ctx := context.Background()
	first, err := c.Get(ctx, "https://www.sec.gov/doc.htm")
	require.NoError(t, err)
	second, err := c.Get(ctx, "https://www.sec.gov/doc.htm")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestCacheDistinctURLs(t *testing.T) {
	inner := &countingFetcher{body: []byte("x")}
	c := newTestCache(t, inner)

	ctx := context.Background()
	_, err := c.Get(ctx, "https://www.sec.gov/a.htm")
	require.NoError(t, err)
	_, err = c.Get(ctx, "https://www.sec.gov/b.htm")
	require.NoError(t, err)

	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCacheErrorNotStored(t *testing.T) {
	inner := &countingFetcher{err: eris.New("boom")}
	c := newTestCache(t, inner)

	ctx := context.Background()
	_, err := c.Get(ctx, "https://www.sec.gov/bad.htm")
	require.Error(t, err)

	// Failure must not poison the cache; the next call fetches again.
	inner.err = nil
	inner.body = []byte("recovered")
	body, err := c.Get(ctx, "https://www.sec.gov/bad.htm")
	require.NoError(t, err)
	assert.Equal(t, "recovered", string(body))
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCacheCollapsesConcurrentMisses(t *testing.T) {
	inner := &countingFetcher{body: []byte("shared")}
	c := newTestCache(t, inner)

	const goroutines = 16
	var wg sync.WaitGroup
	wg.Add(goroutines)
	errs := make([]error, goroutines)

	for i := range goroutines {
		go func() {
			defer wg.Done()
			_, errs[i] = c.Get(context.Background(), "https://www.sec.gov/hot.htm")
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), inner.calls.Load(), "only one request may leave per URL")
}

func TestCacheSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	inner := &countingFetcher{body: []byte("persisted")}

	c1, err := NewCachingFetcher(inner, dir)
	require.NoError(t, err)
	_, err = c1.Get(context.Background(), "https://www.sec.gov/p.htm")
	require.NoError(t, err)
	require.NoError(t, c1.Close())

	c2, err := NewCachingFetcher(inner, dir)
	require.NoError(t, err)
	defer c2.Close()

	body, err := c2.Get(context.Background(), "https://www.sec.gov/p.htm")
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(body))
	assert.Equal(t, int32(1), inner.calls.Load())
}

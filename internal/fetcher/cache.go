package fetcher

import (
	"context"
	"errors"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CachingFetcher wraps a Fetcher with a badger-backed URL cache. Hits bypass
// the rate limiter entirely. Entries never expire within a run and are
// written at most once per URL. Concurrent misses on the same URL are
// collapsed so a single request leaves the process.
type CachingFetcher struct {
	inner Fetcher
	db    *badger.DB
	group singleflight.Group
}

// NewCachingFetcher opens (or creates) the cache directory and wraps inner.
func NewCachingFetcher(inner Fetcher, dir string) (*CachingFetcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "fetcher: create cache dir %s", dir)
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open cache at %s", dir)
	}
	return &CachingFetcher{inner: inner, db: db}, nil
}

// Get returns the cached body for the URL, fetching and caching on miss.
func (c *CachingFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	if data, ok := c.lookup(url); ok {
		return data, nil
	}

	v, err, _ := c.group.Do(url, func() (any, error) {
		// The race loser may arrive after the winner populated the cache.
		if data, ok := c.lookup(url); ok {
			return data, nil
		}
		data, err := c.inner.Get(ctx, url)
		if err != nil {
			return nil, err
		}
		c.store(url, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Close releases the underlying badger database.
func (c *CachingFetcher) Close() error {
	return c.db.Close()
}

func (c *CachingFetcher) lookup(url string) ([]byte, bool) {
	var data []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(url))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			zap.L().Warn("cache read failed, fetching directly",
				zap.String("url", url),
				zap.Error(err),
			)
		}
		return nil, false
	}
	return data, true
}

// store writes the body once; existing entries are left untouched. Cache
// write failures degrade to uncached operation.
func (c *CachingFetcher) store(url string, data []byte) {
	err := c.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(url)); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set([]byte(url), data)
	})
	if err != nil {
		zap.L().Warn("cache write failed",
			zap.String("url", url),
			zap.Error(err),
		)
	}
}

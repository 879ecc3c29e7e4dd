package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/edgar-llm/internal/docstore"
	"github.com/sells-group/edgar-llm/internal/fetcher"
	"github.com/sells-group/edgar-llm/internal/fiscal"
	"github.com/sells-group/edgar-llm/internal/pipeline"
	"github.com/sells-group/edgar-llm/internal/storage"
)

// pipelineEnv holds the fetcher chain, fiscal registry, stores and the
// assembled pipeline used by the process command.
type pipelineEnv struct {
	Fetch    fetcher.Fetcher
	Cache    *fetcher.CachingFetcher // nil when caching is disabled
	Registry *fiscal.Registry
	Objects  storage.ObjectStore
	Meta     docstore.Store
	Pipeline *pipeline.Pipeline
}

// Close releases the URL cache and the metadata store.
func (pe *pipelineEnv) Close() {
	if pe.Cache != nil {
		_ = pe.Cache.Close()
	}
	if pe.Meta != nil {
		_ = pe.Meta.Close()
	}
}

// initPipeline builds the SEC fetcher, fiscal registry, object store and
// metadata store, migrates the schema and assembles the Pipeline. Callers
// should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	httpFetcher, err := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:     cfg.Fetch.UserAgent,
		RateLimit:     cfg.Fetch.RateLimit,
		Burst:         cfg.Fetch.Burst,
		Timeout:       cfg.Fetch.Timeout,
		MaxRetries:    cfg.Fetch.MaxRetries,
		BackoffBase:   cfg.Fetch.BackoffBase,
		BackoffFactor: cfg.Fetch.BackoffFactor,
		BackoffJitter: cfg.Fetch.BackoffJitter,
	})
	if err != nil {
		return nil, err
	}

	var fetch fetcher.Fetcher = httpFetcher
	var cache *fetcher.CachingFetcher
	if cfg.Fetch.CacheDir != "" {
		cache, err = fetcher.NewCachingFetcher(httpFetcher, cfg.Fetch.CacheDir)
		if err != nil {
			return nil, err
		}
		fetch = cache
	}

	registry, err := fiscal.NewRegistry(cfg.Fiscal.RegistryFile)
	if err != nil {
		if cache != nil {
			_ = cache.Close()
		}
		return nil, err
	}

	objects, err := storage.NewFSStore(cfg.Storage.BucketDir)
	if err != nil {
		if cache != nil {
			_ = cache.Close()
		}
		return nil, err
	}

	meta, err := initStore(ctx)
	if err != nil {
		if cache != nil {
			_ = cache.Close()
		}
		return nil, err
	}
	if err := meta.Migrate(ctx); err != nil {
		_ = meta.Close()
		if cache != nil {
			_ = cache.Close()
		}
		return nil, eris.Wrap(err, "migrate store")
	}

	return &pipelineEnv{
		Fetch:    fetch,
		Cache:    cache,
		Registry: registry,
		Objects:  objects,
		Meta:     meta,
		Pipeline: pipeline.New(cfg, fetch, registry, objects, meta),
	}, nil
}

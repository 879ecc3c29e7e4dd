// Package fetcher downloads SEC documents with per-host rate limiting,
// retry with exponential backoff, and an on-disk URL cache.
package fetcher

import (
	"context"
)

// Fetcher defines the interface for downloading remote documents.
type Fetcher interface {
	// Get fetches the URL and returns the full response body.
	Get(ctx context.Context, url string) ([]byte, error)
}

// Package seatmap resolves a venue's seat-map image, given an optional
// URL and a venue name, behind a small LRU cache so repeated lookups for
// the same venue within a process lifetime don't re-fetch.
package seatmap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// Fetcher performs the actual retrieval of an image buffer from a URL.
// Swappable for tests.
type Fetcher func(ctx context.Context, url string) ([]byte, error)

// Resolver looks up a seat-map image for a venue, preferring a directly
// supplied URL and caching results by venue name.
type Resolver struct {
	cache  *lru.Cache[string, []byte]
	fetch  Fetcher
	log    zerolog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// NewResolver builds a Resolver with an LRU cache of size capacity.
func NewResolver(capacity int, log zerolog.Logger) *Resolver {
	cache, err := lru.New[string, []byte](capacity)
	if err != nil {
		// Only possible with capacity <= 0; fall back to a minimally
		// useful cache rather than propagating a constructor error
		// through every caller.
		cache, _ = lru.New[string, []byte](1)
	}
	return &Resolver{
		cache: cache,
		fetch: defaultFetcher,
		log:   log.With().Str("component", "seatmap_resolver").Logger(),
	}
}

// Resolve returns the image buffer for (seatMapURL, venueName), or
// (nil, false) if none is available. A non-empty seatMapURL is always
// tried first; venueName is the cache key regardless of which URL
// produced the hit, so two events at the same venue share a cache entry.
func (r *Resolver) Resolve(ctx context.Context, seatMapURL, venueName string) ([]byte, bool) {
	key := venueName
	if key == "" {
		key = seatMapURL
	}
	if key == "" {
		return nil, false
	}

	if buf, ok := r.cache.Get(key); ok {
		r.hits.Add(1)
		return buf, true
	}
	r.misses.Add(1)

	if seatMapURL == "" {
		return nil, false
	}

	buf, err := r.fetch(ctx, seatMapURL)
	if err != nil {
		r.log.Debug().Err(err).Str("venue", venueName).Msg("seat map fetch failed")
		return nil, false
	}

	r.cache.Add(key, buf)
	return buf, true
}

// Stats returns cumulative cache hit/miss counters.
func (r *Resolver) Stats() (hits, misses int64) {
	return r.hits.Load(), r.misses.Load()
}

func defaultFetcher(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building seat map request: %w", err)
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching seat map: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("seat map fetch: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

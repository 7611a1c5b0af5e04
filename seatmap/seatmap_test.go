package seatmap

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestResolveCachesByVenue(t *testing.T) {
	r := NewResolver(8, zerolog.Nop())
	calls := 0
	r.fetch = func(ctx context.Context, url string) ([]byte, error) {
		calls++
		return []byte("image-bytes"), nil
	}

	buf, ok := r.Resolve(context.Background(), "https://example.com/map.png", "Moda Center")
	if !ok || string(buf) != "image-bytes" {
		t.Fatalf("expected a cache miss then a fetched buffer, got ok=%v", ok)
	}
	buf2, ok2 := r.Resolve(context.Background(), "https://example.com/map.png", "Moda Center")
	if !ok2 || string(buf2) != "image-bytes" {
		t.Fatal("expected a cache hit on the second call")
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 underlying fetch, got %d", calls)
	}

	hits, misses := r.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got hits=%d misses=%d", hits, misses)
	}
}

func TestResolveNoURLNoVenueReturnsFalse(t *testing.T) {
	r := NewResolver(8, zerolog.Nop())
	if _, ok := r.Resolve(context.Background(), "", ""); ok {
		t.Fatal("expected false with neither URL nor venue name")
	}
}

func TestResolveFetchFailureIsNonFatal(t *testing.T) {
	r := NewResolver(8, zerolog.Nop())
	r.fetch = func(ctx context.Context, url string) ([]byte, error) {
		return nil, errors.New("boom")
	}
	if _, ok := r.Resolve(context.Background(), "https://example.com/x.png", "Some Arena"); ok {
		t.Fatal("expected false on fetch failure")
	}
}

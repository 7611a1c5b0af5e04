package adapter

import (
	"context"
	"sync"
	"time"
)

// tokenRefreshMargin is how far ahead of expiry ensureValidToken forces a
// refresh, so a token never goes stale mid-call.
const tokenRefreshMargin = 60 * time.Second

// TokenFetcher performs the actual OAuth2 client-credentials exchange and
// returns a fresh access token plus its remaining lifetime.
type TokenFetcher func(ctx context.Context) (accessToken string, expiresIn time.Duration, err error)

// tokenRefresh tracks one in-flight refresh so concurrent callers collapse
// onto a single outcome instead of each triggering their own exchange.
type tokenRefresh struct {
	done  chan struct{}
	token string
	err   error
}

// TokenManager holds the current access token for one OAuth2
// client-credentials adapter and coalesces concurrent refreshes.
type TokenManager struct {
	fetch TokenFetcher

	mu       sync.Mutex
	token    string
	expiry   time.Time
	inflight *tokenRefresh
}

// NewTokenManager builds a TokenManager with no token yet loaded.
func NewTokenManager(fetch TokenFetcher) *TokenManager {
	return &TokenManager{fetch: fetch}
}

// EnsureValid returns a usable access token, refreshing it first if it is
// absent or expires within tokenRefreshMargin. Concurrent callers that
// arrive while a refresh is already running share that refresh's outcome
// rather than each triggering their own.
func (m *TokenManager) EnsureValid(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.token != "" && time.Until(m.expiry) > tokenRefreshMargin {
		tok := m.token
		m.mu.Unlock()
		return tok, nil
	}

	if m.inflight != nil {
		refresh := m.inflight
		m.mu.Unlock()
		return m.await(ctx, refresh)
	}

	refresh := &tokenRefresh{done: make(chan struct{})}
	m.inflight = refresh
	m.mu.Unlock()

	go m.doRefresh(refresh)
	return m.await(ctx, refresh)
}

func (m *TokenManager) doRefresh(refresh *tokenRefresh) {
	token, ttl, err := m.fetch(context.Background())

	m.mu.Lock()
	if err == nil {
		m.token = token
		m.expiry = time.Now().Add(ttl)
	}
	m.inflight = nil
	m.mu.Unlock()

	refresh.token = token
	refresh.err = err
	close(refresh.done)
}

func (m *TokenManager) await(ctx context.Context, refresh *tokenRefresh) (string, error) {
	select {
	case <-refresh.done:
		return refresh.token, refresh.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Invalidate clears the current token, forcing the next EnsureValid call to
// refresh. Called on a 401 response so the next call gets a fresh token.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.expiry = time.Time{}
}

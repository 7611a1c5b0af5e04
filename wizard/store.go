package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/seatsniper/engine/redisclient"
)

const keyPrefix = "sniper:wizard:"

// Store holds one in-flight wizard Session per chat id. Redis is primary
// (SETEX gives free expiry); when it's unavailable, operations fall back
// to an in-process map with a background pruner standing in for Redis's
// TTL sweep.
type Store struct {
	log zerolog.Logger
	rc  *redisclient.Client

	mu       sync.Mutex
	fallback map[string]sessionEntry
}

type sessionEntry struct {
	session   Session
	expiresAt time.Time
}

// NewStore builds a Store. rc may be nil, in which case the store runs
// entirely on its in-memory fallback.
func NewStore(rc *redisclient.Client, log zerolog.Logger) *Store {
	s := &Store{
		log:      log.With().Str("component", "wizard_store").Logger(),
		rc:       rc,
		fallback: make(map[string]sessionEntry),
	}
	return s
}

// RunPruner blocks, sweeping expired in-memory fallback sessions every
// PrunerInterval until ctx is cancelled. Safe to run even when Redis is
// healthy; it's a no-op while the fallback map stays empty.
func (s *Store) RunPruner(ctx context.Context) {
	ticker := time.NewTicker(PrunerInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pruneExpired()
		}
	}
}

func (s *Store) pruneExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	pruned := 0
	for chatID, entry := range s.fallback {
		if now.After(entry.expiresAt) {
			delete(s.fallback, chatID)
			pruned++
		}
	}
	if pruned > 0 {
		s.log.Debug().Int("pruned", pruned).Msg("wizard session fallback pruned")
	}
}

// Get returns the session for chatID, or (Session{}, false) if none
// exists or it has expired.
func (s *Store) Get(ctx context.Context, chatID string) (Session, bool) {
	if s.rc != nil {
		raw, err := s.rc.Raw().Get(ctx, keyPrefix+chatID).Result()
		if err == nil {
			var sess Session
			if jsonErr := json.Unmarshal([]byte(raw), &sess); jsonErr == nil {
				return sess, true
			}
		} else if err != redis.Nil {
			s.log.Warn().Err(err).Msg("wizard session redis get failed, using fallback")
			return s.getFallback(chatID)
		}
		return Session{}, false
	}
	return s.getFallback(chatID)
}

func (s *Store) getFallback(chatID string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.fallback[chatID]
	if !ok || time.Now().After(entry.expiresAt) {
		return Session{}, false
	}
	return entry.session, true
}

// Put stores sess with a refreshed SessionTTL.
func (s *Store) Put(ctx context.Context, sess Session) error {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}
	if s.rc != nil {
		payload, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("wizard: marshal session: %w", err)
		}
		if err := s.rc.Raw().SetEx(ctx, keyPrefix+sess.ChatID, payload, SessionTTL).Err(); err == nil {
			return nil
		} else {
			s.log.Warn().Err(err).Msg("wizard session redis setex failed, using fallback")
		}
	}
	s.putFallback(sess)
	return nil
}

func (s *Store) putFallback(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback[sess.ChatID] = sessionEntry{session: sess, expiresAt: time.Now().Add(SessionTTL)}
}

// Clear deletes chatID's session, used whenever a menu-button press should
// abandon any in-flight wizard flow before dispatch.
func (s *Store) Clear(ctx context.Context, chatID string) error {
	if s.rc != nil {
		if err := s.rc.Raw().Del(ctx, keyPrefix+chatID).Err(); err != nil {
			s.log.Warn().Err(err).Msg("wizard session redis del failed, clearing fallback only")
		}
	}
	s.mu.Lock()
	delete(s.fallback, chatID)
	s.mu.Unlock()
	return nil
}

// Package counter keeps per-session reaction tallies in the remote cache.
//
// Increments are read-modify-write with no atomic primitive underneath, so
// concurrent incrementers for the same session race and the last write wins.
package counter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/reactions/internal/core/reaction"
)

// KeyPrefix is prepended to the session id to form the cache key.
const KeyPrefix = "reactions-"

// errCorruptRecord marks a stored record that is not a counters document.
var errCorruptRecord = errors.New("corrupt counters record")

// Cache is the subset of the remote cache API used by the store.
// *remote.Client satisfies it.
type Cache interface {
	CacheGet(ctx context.Context, key string) (string, bool, error)
	CacheSet(ctx context.Context, key, value string, ttl time.Duration) error
	CacheDelete(ctx context.Context, key string) error
}

// Store reads and writes reaction counters.
type Store struct {
	cache  Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// New creates a Store. A ttl of zero leaves the cache default in place.
func New(cache Cache, ttl time.Duration, logger zerolog.Logger) *Store {
	return &Store{cache: cache, ttl: ttl, logger: logger}
}

// Key returns the cache key holding the counters for sessionID.
func Key(sessionID string) string {
	return KeyPrefix + sessionID
}

// Counts returns the counters for sessionID. It never fails: a missing
// record, a read error or an unreadable record all yield zero-filled
// counters.
func (s *Store) Counts(ctx context.Context, sessionID string) reaction.Counters {
	counts, err := s.load(ctx, sessionID)
	if err != nil {
		s.logger.Warn().Err(err).Str("session", sessionID).Msg("reading counters, using zeros")
		return reaction.NewCounters()
	}
	return counts
}

// Increment adds one to emoji for sessionID and returns the counters as
// written. A failed read aborts without writing so the stored tally is never
// replaced by zeros; an undecodable record is overwritten from zero.
func (s *Store) Increment(ctx context.Context, sessionID string, emoji reaction.EmojiType) (reaction.Counters, error) {
	if !reaction.IsValidEmojiType(string(emoji)) {
		return nil, fmt.Errorf("increment: unknown emoji type %q", emoji)
	}

	counts, err := s.load(ctx, sessionID)
	switch {
	case errors.Is(err, errCorruptRecord):
		s.logger.Warn().Err(err).Str("session", sessionID).Msg("replacing unreadable counters")
		counts = reaction.NewCounters()
	case err != nil:
		return nil, fmt.Errorf("read counters: %w", err)
	}
	counts[emoji]++

	data, err := json.Marshal(counts)
	if err != nil {
		return nil, fmt.Errorf("encode counters: %w", err)
	}
	if err := s.cache.CacheSet(ctx, Key(sessionID), string(data), s.ttl); err != nil {
		return nil, fmt.Errorf("write counters: %w", err)
	}

	s.logger.Debug().Str("session", sessionID).Str("emoji", string(emoji)).Int("count", counts[emoji]).Msg("counter incremented")
	return counts, nil
}

// Reset deletes the counters for sessionID. Resetting a session with no
// record succeeds.
func (s *Store) Reset(ctx context.Context, sessionID string) error {
	if err := s.cache.CacheDelete(ctx, Key(sessionID)); err != nil {
		return fmt.Errorf("reset counters: %w", err)
	}
	return nil
}

func (s *Store) load(ctx context.Context, sessionID string) (reaction.Counters, error) {
	raw, found, err := s.cache.CacheGet(ctx, Key(sessionID))
	if err != nil {
		return nil, err
	}
	if !found || raw == "" {
		return reaction.NewCounters(), nil
	}

	var stored reaction.Counters
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("%w: %w", errCorruptRecord, err)
	}
	return stored.Normalize(), nil
}

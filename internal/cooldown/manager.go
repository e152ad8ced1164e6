// Package cooldown rate limits reactions sent from this device. State is kept
// in durable device storage so a restart does not reset the window.
//
// Only the device's own sender id is tracked. Ids received from other peers
// are never on cooldown here; suppressing noisy remote senders is the job of
// the subscription layer.
package cooldown

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/reactions/internal/core/kv"
	"github.com/hay-kot/reactions/pkg/clock"
	"github.com/hay-kot/reactions/pkg/randid"
)

const (
	// DefaultWindow is how long the device must wait between reactions.
	DefaultWindow = 3 * time.Second
	// DefaultSweepInterval is how often expired state is cleared.
	DefaultSweepInterval = 5 * time.Second

	// StorageKey holds the serialized cooldown record.
	StorageKey = "animated-reactions-cooldown"
	// SenderIDKey holds the device sender id.
	SenderIDKey = "animated-reactions-sender-id"

	senderIDPrefix = "sender"
	senderIDRandom = 13
)

// record is the persisted cooldown blob. GlobalCooldown is an absolute expiry
// in unix milliseconds; zero means no cooldown.
type record struct {
	SenderID  string `json:"senderId"`
	Cooldowns struct {
		GlobalCooldown int64 `json:"globalCooldown"`
	} `json:"cooldowns"`
}

// StorageError reports a failed read or write of device storage. It is only
// logged; the manager keeps working from memory.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Manager tracks the cooldown of the local device's sender id.
type Manager struct {
	store  kv.Store
	clock  clock.Clock
	logger zerolog.Logger

	window        time.Duration
	sweepInterval time.Duration

	mu       sync.Mutex
	senderID string
	expiry   time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithWindow overrides the cooldown duration.
func WithWindow(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.window = d
		}
	}
}

// WithSweepInterval overrides how often Start clears expired state.
func WithSweepInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.sweepInterval = d
		}
	}
}

// WithLogger sets the logger used for storage failures.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// New loads (or mints) the device sender id and any unexpired cooldown from
// store.
func New(store kv.Store, opts ...Option) *Manager {
	m := &Manager{
		store:         store,
		clock:         clock.Real(),
		logger:        zerolog.Nop(),
		window:        DefaultWindow,
		sweepInterval: DefaultSweepInterval,
		stop:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.senderID = m.loadSenderID()
	m.loadCooldown()
	return m
}

// SenderID returns the device sender id. It is never empty.
func (m *Manager) SenderID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.senderID
}

// ResetSenderID mints and persists a new device sender id. The current
// cooldown expiry is kept.
func (m *Manager) ResetSenderID() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.senderID = m.mintSenderID()
	return m.senderID
}

// IsOnCooldown reports whether senderID is the device's own id and its
// cooldown has not yet expired.
func (m *Manager) IsOnCooldown(senderID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if senderID != m.senderID {
		return false
	}
	if m.expiredLocked() {
		return false
	}
	return true
}

// SetCooldown starts a new cooldown window for the device. Calls with any
// other id are ignored.
func (m *Manager) SetCooldown(senderID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if senderID != m.senderID {
		return
	}
	m.expiry = m.clock.Now().Add(m.window)
	m.saveLocked()
}

// RemainingTime returns how long the device must still wait. It is zero for
// foreign ids and once the window has elapsed.
func (m *Manager) RemainingTime(senderID string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if senderID != m.senderID {
		return 0
	}
	if m.expiredLocked() {
		return 0
	}
	return m.expiry.Sub(m.clock.Now())
}

// Expiration returns the current cooldown expiry after clearing expired
// state. The zero time means no cooldown.
func (m *Manager) Expiration() time.Time {
	m.Sweep()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expiry
}

// Sweep clears an expired cooldown so storage does not keep a stale expiry.
func (m *Manager) Sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expiredLocked()
}

// Start sweeps expired state every sweep interval until ctx is done or Close
// is called. It does not block.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stop:
				return
			case <-m.clock.After(m.sweepInterval):
				m.Sweep()
			}
		}
	}()
}

// Close stops the sweep loop started by Start. It is safe to call more than
// once.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// expiredLocked reports whether no cooldown is active, resetting and
// persisting a stale expiry when one is observed.
func (m *Manager) expiredLocked() bool {
	if m.expiry.IsZero() {
		return true
	}
	if m.clock.Now().Before(m.expiry) {
		return false
	}
	m.expiry = time.Time{}
	m.saveLocked()
	return true
}

// loadSenderID prefers the dedicated key, then migrates an id embedded in a
// legacy cooldown record, then mints a fresh one.
func (m *Manager) loadSenderID() string {
	ctx := context.Background()

	entry, err := m.store.Get(ctx, SenderIDKey)
	switch {
	case err == nil && entry.Value != "":
		return entry.Value
	case err != nil && !errors.Is(err, kv.ErrKeyNotFound):
		m.logStorageError("get", SenderIDKey, err)
	}

	if rec, ok := m.readRecord(); ok && rec.SenderID != "" {
		if err := m.store.Set(ctx, SenderIDKey, rec.SenderID); err != nil {
			m.logStorageError("set", SenderIDKey, err)
		}
		return rec.SenderID
	}

	return m.mintSenderID()
}

func (m *Manager) loadCooldown() {
	rec, ok := m.readRecord()
	if !ok {
		return
	}
	if exp := time.UnixMilli(rec.Cooldowns.GlobalCooldown); rec.Cooldowns.GlobalCooldown > 0 && exp.After(m.clock.Now()) {
		m.expiry = exp
	}
}

func (m *Manager) readRecord() (record, bool) {
	entry, err := m.store.Get(context.Background(), StorageKey)
	if err != nil {
		if !errors.Is(err, kv.ErrKeyNotFound) {
			m.logStorageError("get", StorageKey, err)
		}
		return record{}, false
	}

	var rec record
	if err := json.Unmarshal([]byte(entry.Value), &rec); err != nil {
		m.logStorageError("decode", StorageKey, err)
		return record{}, false
	}
	return rec, true
}

// mintSenderID generates a new id and persists it together with the current
// cooldown record. Callers hold m.mu or are still constructing m.
func (m *Manager) mintSenderID() string {
	id := randid.Timestamped(senderIDPrefix, m.clock.Now(), senderIDRandom)

	if err := m.store.Set(context.Background(), SenderIDKey, id); err != nil {
		m.logStorageError("set", SenderIDKey, err)
	}

	m.senderID = id
	m.saveLocked()
	return id
}

func (m *Manager) saveLocked() {
	var rec record
	rec.SenderID = m.senderID
	if !m.expiry.IsZero() {
		rec.Cooldowns.GlobalCooldown = m.expiry.UnixMilli()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		m.logStorageError("encode", StorageKey, err)
		return
	}
	if err := m.store.Set(context.Background(), StorageKey, string(data)); err != nil {
		m.logStorageError("set", StorageKey, err)
	}
}

func (m *Manager) logStorageError(op, key string, err error) {
	m.logger.Warn().Err(&StorageError{Op: op, Key: key, Err: err}).Msg("device storage unavailable, using in-memory state")
}

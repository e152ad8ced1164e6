// Package subscription turns a transport subscription into the stream a
// presentation surface consumes: validated session, reset notifications and
// per-sender flood suppression.
package subscription

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/reactions/internal/core/messaging"
	"github.com/hay-kot/reactions/internal/core/reaction"
	"github.com/hay-kot/reactions/internal/core/validate"
	"github.com/hay-kot/reactions/internal/pubsub"
	"github.com/hay-kot/reactions/pkg/clock"
)

const (
	// DefaultWindow is the minimum spacing between accepted reactions from
	// one remote sender.
	DefaultWindow = 3000 * time.Millisecond
	// DefaultPurgeInterval is how often stale sender entries are dropped.
	DefaultPurgeInterval = 10 * time.Second
)

// ErrCancelled is returned by Open when its context is already done.
var ErrCancelled = errors.New("subscription: context cancelled")

// Transport is the part of *pubsub.Transport the orchestrator drives.
type Transport interface {
	SubscribeTopics(ctx context.Context, topics []string, onMessage func(messaging.Message)) (*pubsub.Subscription, error)
	Disconnect()
	Connected() bool
}

// Handlers receive accepted traffic. OnReset may be nil, in which case the
// reset topic is not subscribed. Handlers may be called concurrently from
// different topic loops and must not call Close.
type Handlers struct {
	OnReaction func(reaction.Reaction)
	OnReset    func()
}

// Options tunes the remote sender cooldown.
type Options struct {
	Window        time.Duration
	PurgeInterval time.Duration
	// DisableCooldownTracking forwards every valid reaction.
	DisableCooldownTracking bool
	Clock                   clock.Clock
	Logger                  zerolog.Logger
}

// State is a snapshot for status displays.
type State struct {
	SessionError    string
	Connected       bool
	SenderCooldowns map[string]time.Time
}

// Subscription owns one session subscription at a time.
type Subscription struct {
	transport Transport
	opts      Options
	logger    zerolog.Logger

	mu           sync.Mutex
	sessionID    string
	sessionError string
	open         bool
	sub          *pubsub.Subscription
	senders      map[string]time.Time
	stopPurge    context.CancelFunc
	purgeDone    chan struct{}
}

// New creates an idle Subscription. Zero options select the defaults.
func New(transport Transport, opts Options) *Subscription {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.PurgeInterval <= 0 {
		opts.PurgeInterval = DefaultPurgeInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	return &Subscription{
		transport: transport,
		opts:      opts,
		logger:    opts.Logger,
		senders:   make(map[string]time.Time),
	}
}

// Open validates sessionID and starts delivering its reactions to h. An
// invalid id is recorded as the session error and no transport is opened.
// Opening again replaces the previous session.
func (s *Subscription) Open(ctx context.Context, sessionID string, h Handlers) error {
	if err := validate.SessionID(sessionID); err != nil {
		s.mu.Lock()
		s.sessionError = validate.DescribeSessionID(sessionID)
		s.mu.Unlock()
		s.logger.Warn().Str("session", sessionID).Str("reason", s.SessionError()).Msg("refusing to subscribe")
		return err
	}
	if ctx.Err() != nil {
		return ErrCancelled
	}

	s.Close()

	topics := []string{sessionID}
	if h.OnReset != nil {
		topics = append(topics, messaging.ResetTopic)
	}

	sub, err := s.transport.SubscribeTopics(ctx, topics, s.dispatcher(h))
	if err != nil {
		return err
	}

	purgeCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	s.sessionID = sessionID
	s.sessionError = ""
	s.open = true
	s.sub = sub
	s.stopPurge = cancel
	s.purgeDone = done
	s.mu.Unlock()

	go s.purgeLoop(purgeCtx, done)

	s.logger.Info().Str("session", sessionID).Bool("reset", h.OnReset != nil).Msg("listening for reactions")
	return nil
}

// Close disconnects the transport, stops the purge loop and forgets sender
// state. It returns once every background goroutine has exited and is safe to
// call more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return
	}
	s.open = false
	s.sub = nil
	stop, done := s.stopPurge, s.purgeDone
	s.stopPurge, s.purgeDone = nil, nil
	s.mu.Unlock()

	s.transport.Disconnect()
	stop()
	<-done

	s.mu.Lock()
	clear(s.senders)
	s.mu.Unlock()
}

// SessionError returns the reason the last Open was refused, or "".
func (s *Subscription) SessionError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionError
}

// Connected reports whether a session is open and its transport is polling.
func (s *Subscription) Connected() bool {
	s.mu.Lock()
	open := s.open
	s.mu.Unlock()
	return open && s.transport.Connected()
}

// Done is closed when the transport gives up on the current session. It is
// nil when no session is open.
func (s *Subscription) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub == nil {
		return nil
	}
	return s.sub.Done()
}

// Err returns pubsub.ErrMaxAttempts once the transport has given up.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub == nil {
		return nil
	}
	return s.sub.Err()
}

// State returns a copy of the current status.
func (s *Subscription) State() State {
	connected := s.Connected()

	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		SessionError:    s.sessionError,
		Connected:       connected,
		SenderCooldowns: maps.Clone(s.senders),
	}
}

// Purge drops sender entries older than twice the cooldown window.
func (s *Subscription) Purge() {
	cutoff := s.opts.Clock.Now().Add(-2 * s.opts.Window)

	s.mu.Lock()
	defer s.mu.Unlock()
	maps.DeleteFunc(s.senders, func(_ string, last time.Time) bool {
		return last.Before(cutoff)
	})
}

func (s *Subscription) dispatcher(h Handlers) func(messaging.Message) {
	return func(m messaging.Message) {
		if m.Reset {
			if h.OnReset != nil {
				h.OnReset()
			}
			return
		}
		if !s.accept(m.Reaction.SenderID) {
			s.logger.Debug().Str("sender", m.Reaction.SenderID).Msg("sender on cooldown, dropping reaction")
			return
		}
		if h.OnReaction != nil {
			h.OnReaction(m.Reaction)
		}
	}
}

// accept records sender and reports whether its reaction may be forwarded.
// Suppressed reactions do not extend the window.
func (s *Subscription) accept(sender string) bool {
	if s.opts.DisableCooldownTracking {
		return true
	}

	now := s.opts.Clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.senders[sender]; ok && now.Sub(last) < s.opts.Window {
		return false
	}
	s.senders[sender] = now
	return true
}

func (s *Subscription) purgeLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.opts.Clock.After(s.opts.PurgeInterval):
			s.Purge()
		}
	}
}

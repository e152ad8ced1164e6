package pubsub

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hay-kot/reactions/internal/core/messaging"
)

// Subscription is a handle on one subscription set started by
// Transport.SubscribeTopics.
type Subscription struct {
	id        string
	sessionID string
	topics    []string
	cancel    context.CancelFunc
	deliver   func(messaging.Message)
	logger    zerolog.Logger

	wg   sync.WaitGroup
	done chan struct{}

	mu     sync.Mutex
	live   int
	err    error
	closed bool
}

// ID returns a unique identifier used to correlate log lines.
func (s *Subscription) ID() string { return s.id }

// Topics returns the subscribed topics.
func (s *Subscription) Topics() []string {
	return append([]string(nil), s.topics...)
}

// Done is closed once every polling loop has exited.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err returns ErrMaxAttempts if the subscription was torn down after
// repeated failures, and nil otherwise.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Active reports whether polling is still running.
func (s *Subscription) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.live > 0
}

// fail tears the whole subscription down with err.
func (s *Subscription) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}

// stop cancels all loops and waits for them to exit.
func (s *Subscription) stop() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	<-s.done
}

func (s *Subscription) loopExited() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live--
}

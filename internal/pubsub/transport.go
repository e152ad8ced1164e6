// Package pubsub delivers reactions over a topic bus that only offers
// request/response calls. Each subscribed topic runs its own long-poll loop
// with exponential backoff; a shared context cancels them all.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hay-kot/reactions/internal/core/messaging"
	"github.com/hay-kot/reactions/internal/core/reaction"
	"github.com/hay-kot/reactions/pkg/clock"
)

const (
	DefaultPollTimeout = 5 * time.Minute
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 30 * time.Second
	DefaultMaxAttempts = 10
)

// Bus is the request/response API the transport is built on. *remote.Client
// satisfies it.
type Bus interface {
	Publish(ctx context.Context, topic string, body []byte) error
	Poll(ctx context.Context, topic string) (messaging.TopicResponse, error)
}

// Options tunes the polling and reconnection policy. Zero values select the
// defaults.
type Options struct {
	// PollTimeout bounds a single long-poll request.
	PollTimeout time.Duration
	// BaseDelay is the wait after the first failed round.
	BaseDelay time.Duration
	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration
	// MaxAttempts is the number of consecutive failed rounds on one topic
	// after which the whole subscription is torn down.
	MaxAttempts int
	Clock       clock.Clock
	Logger      zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.PollTimeout <= 0 {
		o.PollTimeout = DefaultPollTimeout
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = DefaultBaseDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = DefaultMaxDelay
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	return o
}

// Transport publishes reactions and maintains at most one active
// subscription set.
type Transport struct {
	bus    Bus
	opts   Options
	logger zerolog.Logger

	mu  sync.Mutex
	sub *Subscription
}

// New creates a Transport over bus.
func New(bus Bus, opts Options) *Transport {
	opts = opts.withDefaults()
	return &Transport{
		bus:    bus,
		opts:   opts,
		logger: opts.Logger,
	}
}

// Publish sends r to the session topic. It makes exactly one attempt; a
// failure is returned as a *remote.TransportError for the caller to decide on
// a retry.
func (t *Transport) Publish(ctx context.Context, sessionID string, r reaction.Reaction) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode reaction: %w", err)
	}
	if err := t.bus.Publish(ctx, sessionID, body); err != nil {
		t.logger.Error().Err(err).Str("session", sessionID).Msg("publish reaction")
		return err
	}
	return nil
}

// PublishReset posts a reset signal for sessionID on messaging.ResetTopic.
// Every reset subscriber receives it regardless of session.
func (t *Transport) PublishReset(ctx context.Context, sessionID string) error {
	body, err := json.Marshal(struct {
		SessionID string `json:"sessionId"`
	}{SessionID: sessionID})
	if err != nil {
		return fmt.Errorf("encode reset: %w", err)
	}
	if err := t.bus.Publish(ctx, messaging.ResetTopic, body); err != nil {
		t.logger.Error().Err(err).Str("session", sessionID).Msg("publish reset")
		return err
	}
	return nil
}

// Subscribe streams valid reactions published to the session topic into
// onReaction. Any previous subscription is cancelled first.
func (t *Transport) Subscribe(ctx context.Context, sessionID string, onReaction func(reaction.Reaction)) (*Subscription, error) {
	return t.SubscribeTopics(ctx, []string{sessionID}, func(m messaging.Message) {
		if !m.Reset {
			onReaction(m.Reaction)
		}
	})
}

// SubscribeTopics runs one polling loop per topic and delivers every message
// tagged with the topic that produced it. Items on messaging.ResetTopic are
// delivered as reset signals without payload decoding. Any previous
// subscription is cancelled first.
//
// onMessage is called from the polling goroutines, possibly concurrently for
// different topics. It must not call Disconnect.
func (t *Transport) SubscribeTopics(ctx context.Context, topics []string, onMessage func(messaging.Message)) (*Subscription, error) {
	topics = uniqueTopics(topics)
	if len(topics) == 0 {
		return nil, ErrNoTopics
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		id:      uuid.NewString(),
		topics:  topics,
		cancel:  cancel,
		deliver: onMessage,
		done:    make(chan struct{}),
		live:    len(topics),
	}
	sub.logger = t.logger.With().Str("subscription", sub.id).Strs("topics", topics).Logger()
	for _, topic := range topics {
		if topic != messaging.ResetTopic && sub.sessionID == "" {
			sub.sessionID = topic
		}
	}

	sub.wg.Add(len(topics))
	go func() {
		sub.wg.Wait()
		close(sub.done)
	}()

	t.mu.Lock()
	prev := t.sub
	t.sub = sub
	t.mu.Unlock()

	if prev != nil {
		prev.stop()
	}

	for _, topic := range topics {
		go t.run(subCtx, sub, topic)
	}

	sub.logger.Info().Msg("subscribed")
	return sub, nil
}

// Disconnect cancels the current subscription, waits for its loops to exit
// and clears the session state. It is safe to call repeatedly.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	sub := t.sub
	t.sub = nil
	t.mu.Unlock()

	if sub != nil {
		sub.stop()
		sub.logger.Info().Msg("disconnected")
	}
}

// Connected reports whether a subscription is active and has not been torn
// down after exhausting its reconnect attempts.
func (t *Transport) Connected() bool {
	t.mu.Lock()
	sub := t.sub
	t.mu.Unlock()
	return sub != nil && sub.Active()
}

// SessionID returns the session topic of the active subscription.
func (t *Transport) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sub == nil {
		return ""
	}
	return t.sub.sessionID
}

// run is the polling loop for one topic.
func (t *Transport) run(ctx context.Context, sub *Subscription, topic string) {
	defer sub.wg.Done()
	defer sub.loopExited()

	logger := sub.logger.With().Str("topic", topic).Logger()
	delays := newBackoff(t.opts.BaseDelay, t.opts.MaxDelay)
	failures := 0

	for ctx.Err() == nil {
		err := t.round(ctx, sub, topic, logger)
		if err == nil {
			if failures > 0 {
				logger.Info().Int("after_failures", failures).Msg("poll recovered")
			}
			failures = 0
			delays.Reset()
			continue
		}
		if ctx.Err() != nil {
			return
		}

		failures++
		if failures >= t.opts.MaxAttempts {
			logger.Error().Err(err).Int("attempts", failures).Msg("max reconnection attempts reached, giving up")
			sub.fail(ErrMaxAttempts)
			return
		}

		delay := delays.NextBackOff()
		logger.Warn().Err(err).Int("attempt", failures).Dur("retry_in", delay).Msg("poll failed")

		select {
		case <-ctx.Done():
			return
		case <-t.opts.Clock.After(delay):
		}
	}
}

// round performs one long-poll request and delivers its items in page order.
// The request ends when the poll timeout or the subscription context fires,
// whichever is first.
func (t *Transport) round(ctx context.Context, sub *Subscription, topic string, logger zerolog.Logger) error {
	pollCtx, cancel := context.WithTimeout(ctx, t.opts.PollTimeout)
	defer cancel()

	resp, err := t.bus.Poll(pollCtx, topic)
	if err != nil {
		return err
	}

	for _, text := range resp.Texts() {
		msg, err := decodeMessage(topic, text)
		if err != nil {
			logger.Debug().Err(err).Msg("dropping message")
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		sub.deliver(msg)
	}
	return nil
}

func decodeMessage(topic, text string) (messaging.Message, error) {
	if topic == messaging.ResetTopic {
		return messaging.Message{Topic: topic, Reset: true}, nil
	}

	r, err := reaction.Decode([]byte(text))
	if err != nil {
		return messaging.Message{}, &MalformedMessageError{Topic: topic, Text: text, Err: err}
	}
	return messaging.Message{Topic: topic, Reaction: r}, nil
}

func uniqueTopics(topics []string) []string {
	seen := make(map[string]bool, len(topics))
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

package subscription

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/reactions/internal/core/messaging"
	"github.com/hay-kot/reactions/internal/core/reaction"
	"github.com/hay-kot/reactions/internal/core/validate"
	"github.com/hay-kot/reactions/internal/pubsub"
	"github.com/hay-kot/reactions/pkg/clock"
)

// chanBus answers each long-poll with the next page pushed for that topic,
// or blocks until the poll is cancelled.
type chanBus struct {
	mu     sync.Mutex
	pages  map[string]chan []string
	topics []string
}

func newChanBus() *chanBus {
	return &chanBus{pages: map[string]chan []string{}}
}

func (b *chanBus) ch(topic string) chan []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.pages[topic]
	if !ok {
		c = make(chan []string, 8)
		b.pages[topic] = c
	}
	return c
}

func (b *chanBus) push(topic string, texts ...string) {
	b.ch(topic) <- texts
}

func (b *chanBus) polled() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.topics...)
}

func (b *chanBus) Publish(context.Context, string, []byte) error { return nil }

func (b *chanBus) Poll(ctx context.Context, topic string) (messaging.TopicResponse, error) {
	b.mu.Lock()
	b.topics = append(b.topics, topic)
	b.mu.Unlock()

	select {
	case <-ctx.Done():
		return messaging.TopicResponse{}, ctx.Err()
	case texts := <-b.ch(topic):
		var resp messaging.TopicResponse
		for _, text := range texts {
			resp.Items = append(resp.Items, messaging.TopicItemContainer{
				Item: messaging.TopicItem{Value: messaging.TopicMessage{Text: text}},
			})
		}
		return resp, nil
	}
}

type received struct {
	mu     sync.Mutex
	items  []reaction.Reaction
	resets int
}

func (r *received) onReaction(x reaction.Reaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, x)
}

func (r *received) onReset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets++
}

func (r *received) reactions() []reaction.Reaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]reaction.Reaction(nil), r.items...)
}

func (r *received) resetCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resets
}

func setup(t *testing.T, opts Options) (*Subscription, *chanBus, *clock.Fake) {
	t.Helper()

	bus := newChanBus()
	tr := pubsub.New(bus, pubsub.Options{Logger: zerolog.Nop()})
	fake := clock.NewFake(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	opts.Clock = fake
	opts.Logger = zerolog.Nop()

	s := New(tr, opts)
	t.Cleanup(s.Close)
	return s, bus, fake
}

const (
	heartA = `{"emojiType":"heart","senderId":"senderA"}`
	heartB = `{"emojiType":"heart","senderId":"senderB"}`
)

func TestSubscription_SenderCooldownScenario(t *testing.T) {
	s, bus, fake := setup(t, Options{})
	var got received

	require.NoError(t, s.Open(context.Background(), "evt-1", Handlers{OnReaction: got.onReaction}))
	assert.True(t, s.Connected())

	bus.push("evt-1", heartA)
	require.Eventually(t, func() bool { return len(got.reactions()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, reaction.Reaction{EmojiType: reaction.Heart, SenderID: "senderA"}, got.reactions()[0])

	fake.Advance(1500 * time.Millisecond)
	bus.push("evt-1", heartA, heartB)
	require.Eventually(t, func() bool { return len(got.reactions()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "senderB", got.reactions()[1].SenderID)

	fake.Advance(1500 * time.Millisecond)
	bus.push("evt-1", heartA)
	require.Eventually(t, func() bool { return len(got.reactions()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "senderA", got.reactions()[2].SenderID)
}

func TestSubscription_DisableCooldownTracking(t *testing.T) {
	s, bus, _ := setup(t, Options{DisableCooldownTracking: true})
	var got received

	require.NoError(t, s.Open(context.Background(), "evt-1", Handlers{OnReaction: got.onReaction}))
	bus.push("evt-1", heartA, heartA, heartA)

	require.Eventually(t, func() bool { return len(got.reactions()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, s.State().SenderCooldowns)
}

func TestSubscription_InvalidSessionRefused(t *testing.T) {
	s, bus, _ := setup(t, Options{})

	err := s.Open(context.Background(), "-bad", Handlers{OnReaction: func(reaction.Reaction) {}})
	require.ErrorIs(t, err, validate.ErrInvalidSessionID)

	assert.Equal(t, validate.DescribeSessionID("-bad"), s.SessionError())
	assert.NotEmpty(t, s.SessionError())
	assert.False(t, s.Connected())

	time.Sleep(10 * time.Millisecond)
	assert.Empty(t, bus.polled(), "no transport opened")

	state := s.State()
	assert.Equal(t, s.SessionError(), state.SessionError)
	assert.False(t, state.Connected)
}

func TestSubscription_ValidOpenClearsSessionError(t *testing.T) {
	s, _, _ := setup(t, Options{})

	_ = s.Open(context.Background(), "x", Handlers{})
	require.NotEmpty(t, s.SessionError())

	require.NoError(t, s.Open(context.Background(), "evt-1", Handlers{}))
	assert.Empty(t, s.SessionError())
}

func TestSubscription_ResetTopic(t *testing.T) {
	s, bus, _ := setup(t, Options{})
	var got received

	require.NoError(t, s.Open(context.Background(), "evt-1", Handlers{
		OnReaction: got.onReaction,
		OnReset:    got.onReset,
	}))

	bus.push(messaging.ResetTopic, `{}`)
	require.Eventually(t, func() bool { return got.resetCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, got.reactions())
	assert.Contains(t, bus.polled(), messaging.ResetTopic)
}

func TestSubscription_SingleTopicWithoutResetHandler(t *testing.T) {
	s, bus, _ := setup(t, Options{})

	require.NoError(t, s.Open(context.Background(), "evt-1", Handlers{OnReaction: func(reaction.Reaction) {}}))
	require.Eventually(t, func() bool { return len(bus.polled()) > 0 }, time.Second, 5*time.Millisecond)

	s.Close()
	assert.NotContains(t, bus.polled(), messaging.ResetTopic)
}

func TestSubscription_PurgeDropsStaleSenders(t *testing.T) {
	s, bus, fake := setup(t, Options{})
	var got received

	require.NoError(t, s.Open(context.Background(), "evt-1", Handlers{OnReaction: got.onReaction}))
	bus.push("evt-1", heartA)
	require.Eventually(t, func() bool { return len(got.reactions()) == 1 }, time.Second, 5*time.Millisecond)

	fake.Advance(5 * time.Second)
	bus.push("evt-1", heartB)
	require.Eventually(t, func() bool { return len(got.reactions()) == 2 }, time.Second, 5*time.Millisecond)

	fake.Advance(2 * time.Second)
	s.Purge()

	cooldowns := s.State().SenderCooldowns
	assert.NotContains(t, cooldowns, "senderA", "older than twice the window")
	assert.Contains(t, cooldowns, "senderB")
}

func TestSubscription_PurgeLoopRunsOnInterval(t *testing.T) {
	s, bus, fake := setup(t, Options{})
	var got received

	require.NoError(t, s.Open(context.Background(), "evt-1", Handlers{OnReaction: got.onReaction}))
	bus.push("evt-1", heartA)
	require.Eventually(t, func() bool { return len(got.reactions()) == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return fake.Pending() > 0 }, time.Second, 5*time.Millisecond)

	fake.Advance(DefaultPurgeInterval)
	require.Eventually(t, func() bool {
		return len(s.State().SenderCooldowns) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestSubscription_CloseIsDeterministic(t *testing.T) {
	s, bus, _ := setup(t, Options{})
	var got received

	require.NoError(t, s.Open(context.Background(), "evt-1", Handlers{OnReaction: got.onReaction}))
	bus.push("evt-1", heartA)
	require.Eventually(t, func() bool { return len(got.reactions()) == 1 }, time.Second, 5*time.Millisecond)

	s.Close()
	state := s.State()
	assert.False(t, state.Connected)
	assert.Empty(t, state.SenderCooldowns)
	assert.Nil(t, s.Done())

	bus.push("evt-1", heartB)
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, got.reactions(), 1)

	s.Close()
}

func TestSubscription_ReopenReplacesSession(t *testing.T) {
	s, bus, _ := setup(t, Options{})
	var got received

	require.NoError(t, s.Open(context.Background(), "evt-1", Handlers{OnReaction: got.onReaction}))
	require.NoError(t, s.Open(context.Background(), "evt-2", Handlers{OnReaction: got.onReaction}))

	bus.push("evt-1", heartA)
	bus.push("evt-2", heartB)
	require.Eventually(t, func() bool { return len(got.reactions()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, []reaction.Reaction{{EmojiType: reaction.Heart, SenderID: "senderB"}}, got.reactions())
}

func TestSubscription_OpenWithCancelledContext(t *testing.T) {
	s, _, _ := setup(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Open(ctx, "evt-1", Handlers{})
	assert.ErrorIs(t, err, ErrCancelled)
	assert.False(t, s.Connected())
}

package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/reactions/internal/core/reaction"
	"github.com/hay-kot/reactions/internal/live"
)

// mockService implements Service for testing.
type mockService struct {
	sent      []reaction.EmojiType
	remaining time.Duration
	err       error
}

func (m *mockService) Send(_ context.Context, _ string, emoji reaction.EmojiType) (reaction.Reaction, error) {
	if m.err != nil {
		return reaction.Reaction{}, m.err
	}
	m.sent = append(m.sent, emoji)
	m.remaining = 3 * time.Second
	return reaction.Reaction{EmojiType: emoji, SenderID: "sender_me"}, nil
}

func (m *mockService) Sender() live.SenderStatus {
	return live.SenderStatus{SenderID: "sender_me", Remaining: m.remaining}
}

func press(k string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// step runs one update and, if it produced a command, feeds that command's
// message back in. Tick commands are skipped since they block.
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	model := next.(Model)
	if cmd == nil {
		return model
	}
	if _, ok := msg.(tea.KeyMsg); ok {
		out := cmd()
		if _, isQuit := out.(tea.QuitMsg); isQuit {
			return model
		}
		next, _ = model.Update(out)
		model = next.(Model)
	}
	return model
}

func TestModel_KeysFollowEmojiOrder(t *testing.T) {
	km := newKeyMap()
	for i, want := range reaction.Types() {
		got, ok := km.emojiFor(press(string(rune('1' + i))))
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := km.emojiFor(press("7"))
	assert.False(t, ok)
}

func TestModel_SendThenCooldownBlocks(t *testing.T) {
	svc := &mockService{}
	m := New(svc, Options{SessionID: "evt-1", EventName: "Live Event"})

	m = step(t, m, press("1"))
	assert.Equal(t, []reaction.EmojiType{reaction.Heart}, svc.sent)
	assert.Equal(t, 1, m.Sent())
	assert.True(t, m.onCooldown())
	assert.Contains(t, m.View(), "cooldown 3s")

	m = step(t, m, press("5"))
	assert.Len(t, svc.sent, 1, "keys ignored while on cooldown")

	svc.remaining = 0
	m = step(t, m, cooldownTickMsg{})
	assert.False(t, m.onCooldown())
	assert.Contains(t, m.View(), "ready to react")

	m = step(t, m, press("5"))
	assert.Equal(t, []reaction.EmojiType{reaction.Heart, reaction.Fire}, svc.sent)
}

func TestModel_SendErrorShown(t *testing.T) {
	svc := &mockService{err: errors.New("publish failed")}
	m := New(svc, Options{SessionID: "evt-1"})

	m = step(t, m, press("2"))
	assert.Equal(t, 0, m.Sent())
	assert.False(t, m.onCooldown())
	assert.Contains(t, m.View(), "publish failed")
}

func TestModel_IncomingFeed(t *testing.T) {
	ch := make(chan reaction.Reaction, 1)
	m := New(&mockService{}, Options{SessionID: "evt-1", Incoming: ch})

	for i := range feedSize + 2 {
		next, cmd := m.Update(incomingMsg{reaction: reaction.Reaction{EmojiType: reaction.Clap, SenderID: "peer"}})
		m = next.(Model)
		require.NotNil(t, cmd, "keeps listening after message %d", i)
	}
	assert.Len(t, m.feed, feedSize)
	assert.Contains(t, m.View(), "peer")

	close(ch)
	next, _ := m.Update(waitForIncoming(ch)())
	m = next.(Model)
	assert.Nil(t, m.incoming)
}

func TestModel_Quit(t *testing.T) {
	m := New(&mockService{}, Options{SessionID: "evt-1"})

	next, cmd := m.Update(press("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, next.(Model).View())
}

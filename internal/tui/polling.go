package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hay-kot/reactions/internal/core/reaction"
)

// cooldownTickInterval matches how often the remaining time is refreshed.
const cooldownTickInterval = 100 * time.Millisecond

// sendTimeout bounds a single publish from the control surface.
const sendTimeout = 10 * time.Second

// cooldownTickMsg triggers a refresh of the remaining cooldown.
type cooldownTickMsg struct{}

// sentMsg reports the outcome of a publish.
type sentMsg struct {
	reaction reaction.Reaction
	err      error
}

// incomingMsg carries a reaction received on the session topic.
type incomingMsg struct {
	reaction reaction.Reaction
}

// feedClosedMsg is sent when the incoming channel is closed.
type feedClosedMsg struct{}

func scheduleCooldownTick() tea.Cmd {
	return tea.Tick(cooldownTickInterval, func(time.Time) tea.Msg {
		return cooldownTickMsg{}
	})
}

func sendReaction(svc Service, sessionID string, emoji reaction.EmojiType) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		r, err := svc.Send(ctx, sessionID, emoji)
		return sentMsg{reaction: r, err: err}
	}
}

// waitForIncoming blocks on the next received reaction. A nil channel
// disables the feed.
func waitForIncoming(ch <-chan reaction.Reaction) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return feedClosedMsg{}
		}
		return incomingMsg{reaction: r}
	}
}

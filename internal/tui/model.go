// Package tui implements the Bubble Tea control surface for sending
// reactions.
package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hay-kot/reactions/internal/core/reaction"
	"github.com/hay-kot/reactions/internal/live"
)

// feedSize is how many received reactions the feed keeps.
const feedSize = 8

// Service is the part of *live.Service the control surface uses.
type Service interface {
	Send(ctx context.Context, sessionID string, emoji reaction.EmojiType) (reaction.Reaction, error)
	Sender() live.SenderStatus
}

// Options configures the control surface.
type Options struct {
	SessionID string
	EventName string
	// Incoming, when set, feeds reactions from other devices into the view.
	Incoming <-chan reaction.Reaction
}

// Model is the Bubble Tea model for the control surface.
type Model struct {
	svc       Service
	sessionID string
	eventName string
	incoming  <-chan reaction.Reaction

	keys keyMap
	help help.Model

	status   live.SenderStatus
	sending  bool
	lastSent *reaction.Reaction
	sent     int
	err      error
	feed     []reaction.Reaction
	width    int
	quitting bool
}

// New creates a control surface model.
func New(svc Service, opts Options) Model {
	return Model{
		svc:       svc,
		sessionID: opts.SessionID,
		eventName: opts.EventName,
		incoming:  opts.Incoming,
		keys:      newKeyMap(),
		help:      help.New(),
		status:    svc.Sender(),
	}
}

// Sent returns the number of reactions published during the session.
func (m Model) Sent() int {
	return m.sent
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(scheduleCooldownTick(), waitForIncoming(m.incoming))
}

// onCooldown reports whether sends are currently blocked.
func (m Model) onCooldown() bool {
	return m.status.Remaining > 0
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case cooldownTickMsg:
		m.status = m.svc.Sender()
		return m, scheduleCooldownTick()

	case sentMsg:
		m.sending = false
		m.status = m.svc.Sender()

		var cdErr *live.CooldownError
		switch {
		case errors.As(msg.err, &cdErr):
			m.err = nil
		case msg.err != nil:
			m.err = msg.err
		default:
			m.err = nil
			m.sent++
			r := msg.reaction
			m.lastSent = &r
		}
		return m, nil

	case incomingMsg:
		m.feed = append(m.feed, msg.reaction)
		if len(m.feed) > feedSize {
			m.feed = m.feed[len(m.feed)-feedSize:]
		}
		return m, waitForIncoming(m.incoming)

	case feedClosedMsg:
		m.incoming = nil
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}

	emoji, ok := m.keys.emojiFor(msg)
	if !ok || m.sending || m.onCooldown() {
		return m, nil
	}

	m.sending = true
	return m, sendReaction(m.svc, m.sessionID, emoji)
}

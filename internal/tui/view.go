package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/reactions/internal/printer"
	"github.com/hay-kot/reactions/internal/styles"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(styles.BannerStyle.Render(styles.Banner))
	b.WriteString("\n")
	b.WriteString(styles.EventStyle.Render(m.eventName))
	b.WriteString(styles.MutedStyle.Render("  session " + m.sessionID))
	b.WriteString("\n\n")

	b.WriteString(m.buttons())
	b.WriteString("\n")

	switch {
	case m.sending:
		b.WriteString(styles.MutedStyle.Render("sending..."))
	case m.onCooldown():
		b.WriteString(styles.CooldownStyle.Render("cooldown " + printer.Remaining(m.status.Remaining)))
	default:
		b.WriteString(styles.ReadyStyle.Render("ready to react"))
	}
	if m.lastSent != nil {
		b.WriteString(styles.MutedStyle.Render("  last sent " + m.lastSent.EmojiType.Glyph()))
	}
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(styles.ErrorStyle.Render(printer.Cross + " " + m.err.Error()))
		b.WriteString("\n")
	}

	if len(m.feed) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.DividerStyle.Render(strings.Repeat("─", 24)))
		b.WriteString("\n")
		for _, r := range m.feed {
			b.WriteString(r.EmojiType.Glyph() + " " + styles.MutedStyle.Render(r.SenderID) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(styles.MutedStyle.Render("you are " + m.status.SenderID))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")

	return b.String()
}

func (m Model) buttons() string {
	style := styles.ButtonStyle
	if m.onCooldown() || m.sending {
		style = styles.ButtonDisabledStyle
	}

	cells := make([]string, 0, len(m.keys.types))
	for i, t := range m.keys.types {
		label := m.keys.Emoji[i].Help().Key + " " + t.Glyph()
		cells = append(cells, style.Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

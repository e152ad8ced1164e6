// Package styles provides shared lipgloss styles for CLI and TUI components.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Tokyo Night color palette.
var (
	ColorGreen  = lipgloss.Color("#9ece6a")
	ColorYellow = lipgloss.Color("#e0af68")
	ColorBlue   = lipgloss.Color("#7aa2f7")
	ColorRed    = lipgloss.Color("#f7768e")
	ColorGray   = lipgloss.Color("#565f89")
	ColorWhite  = lipgloss.Color("#c0caf5")
	ColorPanel  = lipgloss.Color("#3b4261")
)

// Banner ASCII art for the control surface header.
const Banner = `
 ╦═╗╔═╗╔═╗╔═╗╔╦╗╦╔═╗╔╗╔╔═╗
 ╠╦╝║╣ ╠═╣║   ║ ║║ ║║║║╚═╗
 ╩╚═╚═╝╩ ╩╚═╝ ╩ ╩╚═╝╝╚╝╚═╝`

// BannerStyle styles the ASCII art banner.
var BannerStyle = lipgloss.NewStyle().
	Foreground(ColorBlue).
	Bold(true)

// EventStyle styles the event name under the banner.
var EventStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Bold(true)

// MutedStyle styles secondary text such as sender ids and help.
var MutedStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// ErrorStyle styles error lines.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(ColorRed)

// Reaction button styles. A button is dimmed while the device is on
// cooldown.
var (
	ButtonStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBlue).
			Padding(0, 2)

	ButtonDisabledStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorPanel).
				Foreground(ColorGray).
				Padding(0, 2)

	CooldownStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	ReadyStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)
)

// DividerStyle styles horizontal dividers.
var DividerStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

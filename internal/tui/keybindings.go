package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"

	"github.com/hay-kot/reactions/internal/core/reaction"
)

// keyMap holds the control surface bindings. Emoji keys follow the emoji
// table order: 1 is the first type, 2 the second, and so on.
type keyMap struct {
	Emoji []key.Binding
	types []reaction.EmojiType
	Quit  key.Binding
}

func newKeyMap() keyMap {
	types := reaction.Types()
	km := keyMap{
		types: types,
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
	for i, t := range types {
		k := strconv.Itoa(i + 1)
		km.Emoji = append(km.Emoji, key.NewBinding(
			key.WithKeys(k),
			key.WithHelp(k, t.Glyph()),
		))
	}
	return km
}

// emojiFor returns the emoji bound to msg, if any.
func (k keyMap) emojiFor(msg fmt.Stringer) (reaction.EmojiType, bool) {
	for i, b := range k.Emoji {
		if key.Matches(msg, b) {
			return k.types[i], true
		}
	}
	return "", false
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("1"), key.WithHelp("1-"+strconv.Itoa(len(k.Emoji)), "react")),
		k.Quit,
	}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.Emoji, {k.Quit}}
}

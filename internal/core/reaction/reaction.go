// Package reaction defines the emoji reaction domain types.
package reaction

import (
	"encoding/json"
	"fmt"
)

// EmojiType is the symbolic tag of a reaction. Only the tags listed in the
// emoji table are valid.
type EmojiType string

const (
	Heart     EmojiType = "heart"
	Hundred   EmojiType = "100"
	ThumbsUp  EmojiType = "thumbsup"
	Clap      EmojiType = "clap"
	Fire      EmojiType = "fire"
	MindBlown EmojiType = "mindblown"
)

// order is the display order of the emoji table.
var order = [...]EmojiType{Heart, Hundred, ThumbsUp, Clap, Fire, MindBlown}

var glyphs = map[EmojiType]string{
	Heart:     "❤️",
	Hundred:   "💯",
	ThumbsUp:  "👍",
	Clap:      "👏",
	Fire:      "🔥",
	MindBlown: "🤯",
}

// Reaction is a single emoji tap sent by a sender to a session topic.
type Reaction struct {
	EmojiType EmojiType `json:"emojiType"`
	SenderID  string    `json:"senderId"`
}

// Types returns the emoji types in display order.
func Types() []EmojiType {
	out := make([]EmojiType, len(order))
	copy(out, order[:])
	return out
}

// IsValidEmojiType reports whether s is a key of the emoji table.
func IsValidEmojiType(s string) bool {
	_, ok := glyphs[EmojiType(s)]
	return ok
}

// Glyph returns the display character for t, or an empty string for unknown
// types.
func (t EmojiType) Glyph() string {
	return glyphs[t]
}

// Valid reports whether the reaction carries a known emoji type.
func (r Reaction) Valid() bool {
	return IsValidEmojiType(string(r.EmojiType))
}

// ParseEmojiType converts a user supplied tag into an EmojiType.
func ParseEmojiType(s string) (EmojiType, error) {
	if !IsValidEmojiType(s) {
		return "", fmt.Errorf("unknown emoji type %q", s)
	}
	return EmojiType(s), nil
}

// Decode parses a JSON-encoded reaction. It accepts only an object whose
// emojiType and senderId fields are both strings and whose emojiType is a
// known tag.
func Decode(data []byte) (Reaction, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Reaction{}, fmt.Errorf("decode reaction: %w", err)
	}
	if raw == nil {
		return Reaction{}, fmt.Errorf("decode reaction: not an object")
	}

	emoji, err := stringField(raw, "emojiType")
	if err != nil {
		return Reaction{}, err
	}
	sender, err := stringField(raw, "senderId")
	if err != nil {
		return Reaction{}, err
	}

	r := Reaction{EmojiType: EmojiType(emoji), SenderID: sender}
	if !r.Valid() {
		return Reaction{}, fmt.Errorf("decode reaction: unknown emoji type %q", emoji)
	}
	return r, nil
}

func stringField(raw map[string]json.RawMessage, name string) (string, error) {
	v, ok := raw[name]
	if !ok || string(v) == "null" {
		return "", fmt.Errorf("decode reaction: missing %s", name)
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", fmt.Errorf("decode reaction: %s is not a string", name)
	}
	return s, nil
}

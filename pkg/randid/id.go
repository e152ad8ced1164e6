// Package randid provides random ID generation utilities.
package randid

import (
	"math/rand/v2"
	"strconv"
	"time"
)

const chars = "abcdefghijklmnopqrstuvwxyz0123456789"

// Generate creates a random lowercase base36 ID of the specified length.
func Generate(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = chars[rand.IntN(len(chars))]
	}
	return string(b)
}

// Timestamped returns "<prefix>_<base36 unix millis>_<random>" where the
// random part has the given length. IDs minted at the same millisecond differ
// in their random part.
func Timestamped(prefix string, t time.Time, length int) string {
	return prefix + "_" + strconv.FormatInt(t.UnixMilli(), 36) + "_" + Generate(length)
}

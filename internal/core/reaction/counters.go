package reaction

// Counters tallies reactions per emoji type for a single session. A Counters
// value produced by NewCounters or Normalize always holds every emoji type.
type Counters map[EmojiType]int

// NewCounters returns zero-filled counters.
func NewCounters() Counters {
	c := make(Counters, len(order))
	for _, t := range order {
		c[t] = 0
	}
	return c
}

// Normalize returns a copy of c holding every known emoji type exactly once.
// Unknown keys are dropped and negative counts are clamped to zero.
func (c Counters) Normalize() Counters {
	out := NewCounters()
	for t, n := range c {
		if _, ok := glyphs[t]; !ok {
			continue
		}
		if n < 0 {
			n = 0
		}
		out[t] = n
	}
	return out
}

// Total returns the sum over all emoji types.
func (c Counters) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

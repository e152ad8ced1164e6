// Package utils holds small helpers shared by the command line entrypoint.
package utils

import (
	"io"
	"sync"
)

// DeferredWriter buffers writes so log output can be replayed after a full
// screen program releases the terminal. Each Write is kept as one entry and
// replayed with a separate Write, which keeps line oriented writers such as
// zerolog.ConsoleWriter working.
type DeferredWriter struct {
	mu      sync.Mutex
	entries [][]byte
}

// Write records a copy of p.
func (d *DeferredWriter) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, append([]byte(nil), p...))
	return len(p), nil
}

// Len returns the number of buffered writes.
func (d *DeferredWriter) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// Flush replays buffered writes to w in order and clears the buffer.
func (d *DeferredWriter) Flush(w io.Writer) error {
	d.mu.Lock()
	entries := d.entries
	d.entries = nil
	d.mu.Unlock()

	for _, e := range entries {
		if _, err := w.Write(e); err != nil {
			return err
		}
	}
	return nil
}

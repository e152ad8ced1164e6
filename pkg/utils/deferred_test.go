package utils

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingWriter struct {
	writes [][]byte
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.writes = append(c.writes, append([]byte(nil), p...))
	return len(p), nil
}

func TestDeferredWriter_FlushReplaysWrites(t *testing.T) {
	var d DeferredWriter

	buf := []byte(`{"level":"info"}` + "\n")
	_, err := d.Write(buf)
	require.NoError(t, err)
	buf[0] = 'X'
	_, _ = d.Write([]byte(`{"level":"warn"}` + "\n"))
	assert.Equal(t, 2, d.Len())

	var out countingWriter
	require.NoError(t, d.Flush(&out))
	require.Len(t, out.writes, 2)
	assert.Equal(t, `{"level":"info"}`+"\n", string(out.writes[0]), "writes are copied")
	assert.Zero(t, d.Len())

	var again bytes.Buffer
	require.NoError(t, d.Flush(&again))
	assert.Empty(t, again.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestDeferredWriter_FlushError(t *testing.T) {
	var d DeferredWriter
	_, _ = d.Write([]byte("x"))
	assert.Error(t, d.Flush(failingWriter{}))
}

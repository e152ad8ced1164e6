package executil

import (
	"context"
	"io"
	"strings"
	"sync"
)

// RecordedCommand captures a command that was executed.
type RecordedCommand struct {
	Cmd  string
	Args []string
}

// Line returns the command and its arguments joined by spaces.
func (c RecordedCommand) Line() string {
	return strings.Join(append([]string{c.Cmd}, c.Args...), " ")
}

// RecordingExecutor captures commands for testing.
// Configure Outputs and Errors maps to control return values.
type RecordingExecutor struct {
	mu       sync.Mutex
	Commands []RecordedCommand

	// Outputs maps a full command line (see RecordedCommand.Line) or a bare
	// command name to its output.
	Outputs map[string][]byte

	// Errors maps a full command line or a bare command name to its error.
	Errors map[string]error
}

// Run records the command and returns configured output/error.
func (e *RecordingExecutor) Run(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	return e.record(cmd, args...)
}

// RunStream records the command and writes configured output to stdout.
func (e *RecordingExecutor) RunStream(ctx context.Context, stdout, stderr io.Writer, cmd string, args ...string) error {
	out, err := e.record(cmd, args...)
	if stdout != nil && len(out) > 0 {
		_, _ = stdout.Write(out)
	}
	return err
}

// Recorded returns a copy of the recorded commands.
func (e *RecordingExecutor) Recorded() []RecordedCommand {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]RecordedCommand(nil), e.Commands...)
}

// Reset clears recorded commands.
func (e *RecordingExecutor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Commands = nil
}

func (e *RecordingExecutor) record(cmd string, args ...string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rc := RecordedCommand{Cmd: cmd, Args: args}
	e.Commands = append(e.Commands, rc)

	return lookup(e.Outputs, rc), lookup(e.Errors, rc)
}

func lookup[T any](m map[string]T, rc RecordedCommand) T {
	var zero T
	if m == nil {
		return zero
	}
	if v, ok := m[rc.Line()]; ok {
		return v
	}
	return m[rc.Cmd]
}

// Package hooks runs user configured shell commands in response to session
// events seen by watch.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/reactions/internal/core/config"
	"github.com/hay-kot/reactions/internal/core/reaction"
	"github.com/hay-kot/reactions/internal/styles"
	"github.com/hay-kot/reactions/pkg/executil"
	"github.com/hay-kot/reactions/pkg/tmpl"
)

// Event is the data hook commands are rendered with.
type Event struct {
	Type      string
	SessionID string
	At        time.Time
	EmojiType reaction.EmojiType
	SenderID  string
}

type hook struct {
	on       string
	emoji    []reaction.EmojiType
	commands []*tmpl.Template
	sources  []string
}

func (h hook) matches(ev Event) bool {
	if h.on != ev.Type {
		return false
	}
	return len(h.emoji) == 0 || slices.Contains(h.emoji, ev.EmojiType)
}

// Runner executes hooks matching an event.
type Runner struct {
	log      zerolog.Logger
	executor executil.Executor
	hooks    []hook
	stdout   io.Writer
	stderr   io.Writer
}

// NewRunner compiles the command templates of hooks.
func NewRunner(hooks []config.Hook, log zerolog.Logger, executor executil.Executor, stdout, stderr io.Writer) (*Runner, error) {
	r := &Runner{
		log:      log,
		executor: executor,
		stdout:   stdout,
		stderr:   stderr,
	}

	for i, h := range hooks {
		compiled := hook{on: h.On, sources: h.Commands}
		for _, e := range h.Emoji {
			compiled.emoji = append(compiled.emoji, reaction.EmojiType(e))
		}
		for j, cmd := range h.Commands {
			t, err := tmpl.Compile(cmd)
			if err != nil {
				return nil, fmt.Errorf("hooks[%d].commands[%d]: %w", i, j, err)
			}
			compiled.commands = append(compiled.commands, t)
		}
		r.hooks = append(r.hooks, compiled)
	}

	return r, nil
}

// Len returns the number of configured hooks.
func (r *Runner) Len() int {
	return len(r.hooks)
}

// Fire runs every hook matching ev. A failing command stops its own hook but
// not the others. The failures are joined in the returned error.
func (r *Runner) Fire(ctx context.Context, ev Event) error {
	var errs []error

	for i, h := range r.hooks {
		if !h.matches(ev) {
			continue
		}

		r.log.Debug().
			Str("event", ev.Type).
			Str("emoji", string(ev.EmojiType)).
			Int("hook", i).
			Msg("running hook")

		for j, t := range h.commands {
			cmd, err := t.Execute(ev)
			if err != nil {
				errs = append(errs, fmt.Errorf("render hook %d command %q: %w", i, h.sources[j], err))
				break
			}

			r.printCommandHeader(ev.Type, j+1, len(h.commands), cmd)

			if err := r.executor.RunStream(ctx, r.stdout, r.stderr, "sh", "-c", cmd); err != nil {
				errs = append(errs, fmt.Errorf("run hook %d command %q: %w", i, cmd, err))
				break
			}
		}
	}

	return errors.Join(errs...)
}

func (r *Runner) printCommandHeader(event string, cmdNum, totalCmds int, cmd string) {
	label := styles.DividerStyle.Render(fmt.Sprintf("hook %s [%d/%d]", event, cmdNum, totalCmds))
	_, _ = fmt.Fprintf(r.stderr, "%s %s\n", label, styles.MutedStyle.Render(cmd))
}

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/reactions/internal/core/config"
	"github.com/hay-kot/reactions/internal/core/reaction"
	"github.com/hay-kot/reactions/internal/hooks"
	"github.com/hay-kot/reactions/internal/printer"
	"github.com/hay-kot/reactions/internal/subscription"
	"github.com/hay-kot/reactions/pkg/executil"
	"github.com/hay-kot/reactions/pkg/tmpl"
)

// watchEvent is one line of JSON output from watch.
type watchEvent struct {
	Type      string             `json:"type"`
	At        time.Time          `json:"at"`
	EmojiType reaction.EmojiType `json:"emojiType,omitempty"`
	SenderID  string             `json:"senderId,omitempty"`
	Counts    reaction.Counters  `json:"counts,omitempty"`
}

type WatchCmd struct {
	flags    *Flags
	reset    bool
	tally    bool
	all      bool
	format   string
	template string
	hooks    bool
}

// NewWatchCmd creates a new watch command
func NewWatchCmd(flags *Flags) *WatchCmd {
	return &WatchCmd{flags: flags}
}

// Register adds the watch command to the application
func (cmd *WatchCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "watch",
		Usage:     "Stream reactions sent to a session",
		UsageText: "reactions watch [options] <session-id>",
		Description: `Long-polls the session topic and prints every accepted reaction until
interrupted. Repeated reactions from one sender inside the sender window are
dropped unless --all is given.

With --tally each accepted reaction is also counted in the remote tally, and
--reset listens for counter resets. --template renders each event with a Go
template over the fields Type, At, EmojiType, SenderID and Counts.

With --hooks the commands configured under "hooks" run through sh for every
matching event. Hook output goes to stderr.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "reset",
				Usage:       "also listen for counter resets",
				Destination: &cmd.reset,
			},
			&cli.BoolFlag{
				Name:        "tally",
				Usage:       "increment the session tally for every accepted reaction",
				Destination: &cmd.tally,
			},
			&cli.BoolFlag{
				Name:        "all",
				Usage:       "do not suppress repeated reactions from the same sender",
				Destination: &cmd.all,
			},
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (auto, text, json)",
				Value:       FormatAuto,
				Destination: &cmd.format,
			},
			&cli.StringFlag{
				Name:        "template",
				Usage:       "Go template rendered per event, e.g. '{{ clock .At }} {{ .EmojiType.Glyph }}'",
				Destination: &cmd.template,
			},
			&cli.BoolFlag{
				Name:        "hooks",
				Usage:       "run the hooks from the config file for each event",
				Destination: &cmd.hooks,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *WatchCmd) run(ctx context.Context, c *cli.Command) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected <session-id>")
	}
	if err := cmd.flags.Config.RequireRemote(); err != nil {
		return err
	}

	sessionID := c.Args().First()
	if err := cmd.flags.Service.CheckSession(sessionID); err != nil {
		return err
	}

	var line *tmpl.Template
	if cmd.template != "" {
		var err error
		if line, err = tmpl.Compile(cmd.template); err != nil {
			return fmt.Errorf("--template: %w", err)
		}
	}

	var runner *hooks.Runner
	if cmd.hooks {
		var err error
		runner, err = hooks.NewRunner(cmd.flags.Config.Hooks,
			log.With().Str("component", "hooks").Logger(),
			&executil.RealExecutor{}, c.Root().ErrWriter, c.Root().ErrWriter)
		if err != nil {
			return err
		}
		if runner.Len() == 0 {
			log.Warn().Msg("--hooks given but no hooks are configured")
		}
	}

	events := make(chan watchEvent, 64)
	push := func(ev watchEvent) {
		select {
		case events <- ev:
		default:
			log.Warn().Str("type", ev.Type).Msg("output is falling behind, dropping event")
		}
	}

	handlers := subscription.Handlers{
		OnReaction: func(r reaction.Reaction) {
			push(watchEvent{Type: config.HookOnReaction, At: time.Now(), EmojiType: r.EmojiType, SenderID: r.SenderID})
		},
	}
	if cmd.reset {
		handlers.OnReset = func() {
			push(watchEvent{Type: config.HookOnReset, At: time.Now()})
		}
	}

	sub := cmd.flags.newSubscription(cmd.all)
	if err := sub.Open(ctx, sessionID, handlers); err != nil {
		return err
	}
	defer sub.Close()

	p := printer.Ctx(ctx)
	out := c.Root().Writer
	format := resolveFormat(cmd.format, out)
	if format == FormatText && line == nil {
		p.Infof("Watching %s (ctrl+c to stop)", sessionID)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.Done():
			if err := sub.Err(); err != nil && ctx.Err() == nil {
				return fmt.Errorf("connection to %s lost: %w", sessionID, err)
			}
			return nil
		case ev := <-events:
			if cmd.tally && ev.Type == config.HookOnReaction {
				counts, err := cmd.flags.Service.Tally(ctx, sessionID, reaction.Reaction{EmojiType: ev.EmojiType, SenderID: ev.SenderID})
				if err != nil {
					log.Warn().Err(err).Str("session", sessionID).Msg("tally failed")
				} else {
					ev.Counts = counts
				}
			}
			if runner != nil {
				hookEvent := hooks.Event{Type: ev.Type, SessionID: sessionID, At: ev.At, EmojiType: ev.EmojiType, SenderID: ev.SenderID}
				if err := runner.Fire(ctx, hookEvent); err != nil {
					log.Warn().Err(err).Str("session", sessionID).Msg("hook failed")
				}
			}
			if line != nil {
				rendered, err := line.Execute(ev)
				if err != nil {
					return fmt.Errorf("--template: %w", err)
				}
				fmt.Fprintln(out, rendered)
				continue
			}
			if err := writeWatchEvent(out, p, format, ev); err != nil {
				return err
			}
		}
	}
}

func writeWatchEvent(w io.Writer, p *printer.Printer, format string, ev watchEvent) error {
	if format == FormatJSON {
		return json.NewEncoder(w).Encode(ev)
	}

	switch ev.Type {
	case config.HookOnReset:
		p.Warnf("Counters reset")
	default:
		printer.New(w).Reaction(reaction.Reaction{EmojiType: ev.EmojiType, SenderID: ev.SenderID})
	}
	return nil
}

package commands

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/reactions/internal/core/reaction"
	"github.com/hay-kot/reactions/internal/printer"
	"github.com/hay-kot/reactions/internal/subscription"
	"github.com/hay-kot/reactions/internal/tui"
)

type ControlCmd struct {
	flags  *Flags
	noFeed bool
}

// NewControlCmd creates a new control command
func NewControlCmd(flags *Flags) *ControlCmd {
	return &ControlCmd{flags: flags}
}

// Register adds the control command to the application
func (cmd *ControlCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "control",
		Usage:     "Open the interactive reaction pad for a session",
		UsageText: "reactions control [options] <session-id>",
		Description: `Opens a full screen pad: press 1-6 to send a reaction. The pad locks while
the device is on cooldown and shows the time remaining. Reactions from other
devices appear in a live feed unless --no-feed is given.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "no-feed",
				Usage:       "do not subscribe to the session for a live feed",
				Destination: &cmd.noFeed,
			},
		},
		Action: cmd.run,
	})

	return app
}

// IsTUI reports whether args select the full screen control surface, in which
// case logs are buffered until it exits.
func IsTUI(args []string) bool {
	for _, a := range args {
		if a == "control" {
			return true
		}
	}
	return false
}

func (cmd *ControlCmd) run(ctx context.Context, c *cli.Command) error {
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

	opts := tui.Options{
		SessionID: sessionID,
		EventName: cmd.flags.Config.Event.Name,
	}

	if !cmd.noFeed {
		feed, sub, err := cmd.openFeed(ctx, sessionID)
		if err != nil {
			return err
		}
		defer sub.Close()
		opts.Incoming = feed
	}

	m := tui.New(cmd.flags.Service, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("run tui: %w", err)
	}

	if fm, ok := final.(tui.Model); ok && fm.Sent() > 0 {
		printer.Ctx(ctx).Successf("Sent %d reaction(s) to %s", fm.Sent(), sessionID)
	}
	return nil
}

// openFeed subscribes to sessionID and forwards reactions from other devices.
// Reactions are dropped when the view is not keeping up.
func (cmd *ControlCmd) openFeed(ctx context.Context, sessionID string) (<-chan reaction.Reaction, *subscription.Subscription, error) {
	self := cmd.flags.Service.Sender().SenderID
	feed := make(chan reaction.Reaction, 16)

	sub := cmd.flags.newSubscription(false)
	err := sub.Open(ctx, sessionID, subscription.Handlers{
		OnReaction: func(r reaction.Reaction) {
			if r.SenderID == self {
				return
			}
			select {
			case feed <- r:
			default:
				log.Debug().Str("sender", r.SenderID).Msg("feed full, dropping reaction")
			}
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return feed, sub, nil
}

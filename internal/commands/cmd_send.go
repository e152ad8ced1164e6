package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/reactions/internal/core/reaction"
	"github.com/hay-kot/reactions/internal/live"
	"github.com/hay-kot/reactions/internal/printer"
)

type SendCmd struct {
	flags  *Flags
	wait   bool
	format string
}

// NewSendCmd creates a new send command
func NewSendCmd(flags *Flags) *SendCmd {
	return &SendCmd{flags: flags}
}

// Register adds the send command to the application
func (cmd *SendCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "send",
		Usage:     "Send a reaction to a session",
		UsageText: "reactions send [options] <session-id> <emoji>",
		Description: fmt.Sprintf(`Publishes one reaction as this device.

After a successful send the device is on cooldown; sending again before it
expires fails unless --wait is given.

Emoji: %v`, reaction.Types()),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "wait",
				Aliases:     []string{"w"},
				Usage:       "wait out an active cooldown instead of failing",
				Destination: &cmd.wait,
			},
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (auto, text, json)",
				Value:       FormatAuto,
				Destination: &cmd.format,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *SendCmd) run(ctx context.Context, c *cli.Command) error {
	if c.NArg() != 2 {
		return fmt.Errorf("expected <session-id> <emoji>, got %d argument(s)", c.NArg())
	}
	if err := cmd.flags.Config.RequireRemote(); err != nil {
		return err
	}

	sessionID := c.Args().Get(0)
	emoji, err := reaction.ParseEmojiType(c.Args().Get(1))
	if err != nil {
		return err
	}

	r, err := cmd.flags.Service.Send(ctx, sessionID, emoji)

	var cdErr *live.CooldownError
	if errors.As(err, &cdErr) && cmd.wait {
		printer.Ctx(ctx).Infof("On cooldown, waiting %s", printer.Remaining(cdErr.Remaining))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cdErr.Remaining):
		}
		r, err = cmd.flags.Service.Send(ctx, sessionID, emoji)
	}
	if err != nil {
		return err
	}

	if resolveFormat(cmd.format, c.Root().Writer) == FormatJSON {
		return json.NewEncoder(c.Root().Writer).Encode(r)
	}

	printer.Ctx(ctx).Success(fmt.Sprintf("Sent %s to %s", r.EmojiType.Glyph(), sessionID), "as "+r.SenderID)
	return nil
}

package commands

import (
	"context"
	"encoding/json"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/reactions/internal/printer"
)

type SenderCmd struct {
	flags  *Flags
	reset  bool
	format string
}

// NewSenderCmd creates a new sender command
func NewSenderCmd(flags *Flags) *SenderCmd {
	return &SenderCmd{flags: flags}
}

// Register adds the sender command to the application
func (cmd *SenderCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "sender",
		Usage:     "Show or reset this device's sender identity",
		UsageText: "reactions sender [--reset]",
		Description: `Every device sends reactions under a persistent sender id. --reset mints
a new id; any active cooldown carries over.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "reset",
				Usage:       "generate a new sender id",
				Destination: &cmd.reset,
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

func (cmd *SenderCmd) run(ctx context.Context, c *cli.Command) error {
	svc := cmd.flags.Service
	if cmd.reset {
		svc.ResetSender()
	}

	status := svc.Sender()

	out := c.Root().Writer
	if resolveFormat(cmd.format, out) == FormatJSON {
		return json.NewEncoder(out).Encode(status)
	}

	p := printer.Ctx(ctx)
	if cmd.reset {
		p.Successf("New sender id generated")
	}
	p.Printf("%s", status.SenderID)
	p.Infof("Cooldown: %s", printer.Remaining(status.Remaining))
	return nil
}

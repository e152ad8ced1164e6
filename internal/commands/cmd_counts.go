package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/reactions/internal/printer"
)

// barWidth is the width of the largest bar in text output.
const barWidth = 30

type CountsCmd struct {
	flags  *Flags
	format string
}

// NewCountsCmd creates a new counts command
func NewCountsCmd(flags *Flags) *CountsCmd {
	return &CountsCmd{flags: flags}
}

// Register adds the counts command to the application
func (cmd *CountsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "counts",
		Usage:     "Show or reset reaction tallies for a session",
		UsageText: "reactions counts [options] <session-id>",
		Description: `Reads the tally kept in the remote cache. Missing or unreadable tallies
show as zeros.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (auto, text, json)",
				Value:       FormatAuto,
				Destination: &cmd.format,
			},
		},
		Action: cmd.run,
		Commands: []*cli.Command{
			{
				Name:      "reset",
				Usage:     "Clear the tally and notify reset listeners",
				UsageText: "reactions counts reset <session-id>",
				Action:    cmd.runReset,
			},
		},
	})

	return app
}

func (cmd *CountsCmd) run(ctx context.Context, c *cli.Command) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected <session-id>")
	}
	if err := cmd.flags.Config.RequireRemote(); err != nil {
		return err
	}

	sessionID := c.Args().First()
	counts, err := cmd.flags.Service.Counts(ctx, sessionID)
	if err != nil {
		return err
	}

	out := c.Root().Writer
	if resolveFormat(cmd.format, out) == FormatJSON {
		return json.NewEncoder(out).Encode(counts)
	}

	p := printer.New(out)
	p.Section(sessionID)
	p.Counters(counts, barWidth)
	return nil
}

func (cmd *CountsCmd) runReset(ctx context.Context, c *cli.Command) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected <session-id>")
	}
	if err := cmd.flags.Config.RequireRemote(); err != nil {
		return err
	}

	sessionID := c.Args().First()
	if err := cmd.flags.Service.ResetCounts(ctx, sessionID); err != nil {
		return err
	}

	printer.Ctx(ctx).Successf("Reset counters for %s", sessionID)
	return nil
}

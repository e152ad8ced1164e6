package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/reactions/internal/core/validate"
	"github.com/hay-kot/reactions/internal/printer"
)

type SessionCmd struct {
	flags  *Flags
	format string
}

// NewSessionCmd creates a new session command
func NewSessionCmd(flags *Flags) *SessionCmd {
	return &SessionCmd{flags: flags}
}

// Register adds the session command to the application
func (cmd *SessionCmd) Register(app *cli.Command) *cli.Command {
	formatFlag := &cli.StringFlag{
		Name:        "format",
		Usage:       "output format (auto, text, json)",
		Value:       FormatAuto,
		Destination: &cmd.format,
	}

	app.Commands = append(app.Commands, &cli.Command{
		Name:  "session",
		Usage: "Session identifier helpers",
		Commands: []*cli.Command{
			{
				Name:      "check",
				Usage:     "Check whether a session id is valid and allowed",
				UsageText: "reactions session check <session-id>",
				Description: `Session ids are 3-64 letters, digits, hyphens and underscores, starting
and ending with a letter or digit. The id must also match one of the
sessions.allow patterns.`,
				Action: cmd.runCheck,
			},
			{
				Name:      "link",
				Usage:     "Print the audience join link and QR code URL",
				UsageText: "reactions session link <session-id>",
				Flags:     []cli.Flag{formatFlag},
				Action:    cmd.runLink,
			},
		},
	})

	return app
}

func (cmd *SessionCmd) runCheck(ctx context.Context, c *cli.Command) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected <session-id>")
	}

	p := printer.Ctx(ctx)
	id := c.Args().First()

	if reason := validate.DescribeSessionID(id); reason != "" {
		p.FailItem(id, reason)
		return cli.Exit("", 1)
	}
	if err := cmd.flags.Config.CheckSession(id); err != nil {
		p.FailItem(id, err.Error())
		return cli.Exit("", 1)
	}

	p.CheckItem(id, "valid")
	return nil
}

func (cmd *SessionCmd) runLink(ctx context.Context, c *cli.Command) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected <session-id>")
	}

	link, err := cmd.flags.Service.JoinLink(c.Args().First())
	if err != nil {
		return err
	}

	out := c.Root().Writer
	if resolveFormat(cmd.format, out) == FormatJSON {
		return json.NewEncoder(out).Encode(link)
	}

	p := printer.New(out)
	p.Printf("%s", link.URL)
	p.Infof("QR code: %s", link.QRCodeURL)
	return nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/reactions/internal/commands"
	"github.com/hay-kot/reactions/internal/cooldown"
	"github.com/hay-kot/reactions/internal/core/config"
	"github.com/hay-kot/reactions/internal/core/kv"
	"github.com/hay-kot/reactions/internal/counter"
	"github.com/hay-kot/reactions/internal/live"
	"github.com/hay-kot/reactions/internal/printer"
	"github.com/hay-kot/reactions/internal/pubsub"
	"github.com/hay-kot/reactions/internal/remote"
	"github.com/hay-kot/reactions/internal/store/jsonfile"
	"github.com/hay-kot/reactions/internal/store/sqlite"
	"github.com/hay-kot/reactions/pkg/utils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	short := commit
	if len(commit) > 7 {
		short = commit[:7]
	}

	return fmt.Sprintf("%s (%s) %s", version, short, date)
}

func main() {
	if err := setupLogger("info", "", nil); err != nil {
		panic(err)
	}

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		p     = printer.New(os.Stderr)
		ctx   = printer.NewContext(signalCtx, p)
		flags = &commands.Flags{}
	)

	var (
		deferredLogs *utils.DeferredWriter
		closers      []func()
	)

	app := &cli.Command{
		Name:      "reactions",
		Usage:     "Send and watch live emoji reactions",
		UsageText: "reactions [global options] command [command options]",
		Description: `Reactions lets an audience send emoji reactions to a live event session.

Every device gets a stable sender id and a short cooldown between sends.
Reactions travel over a hosted topic bus and are tallied per session.

Run 'reactions control <session>' to open the interactive control surface.
Run 'reactions watch <session>' to stream what everyone else is sending.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("REACTIONS_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (optional)",
				Sources:     cli.EnvVars("REACTIONS_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("REACTIONS_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("REACTIONS_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			// The control surface owns the terminal, buffer logs until it exits.
			var deferred io.Writer
			if commands.IsTUI(os.Args[1:]) {
				deferredLogs = &utils.DeferredWriter{}
				deferred = deferredLogs
			}

			if err := setupLogger(flags.LogLevel, flags.LogFile, deferred); err != nil {
				return ctx, err
			}

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
				return ctx, fmt.Errorf("create data directory: %w", err)
			}

			device, closeDevice, err := openDeviceStore(cfg)
			if err != nil {
				return ctx, err
			}
			closers = append(closers, closeDevice)

			var (
				client = remote.New(remote.Config{
					BaseURL:   cfg.Remote.BaseURL,
					CacheName: cfg.Remote.CacheName,
					APIKey:    cfg.Remote.APIKey,
				}, &http.Client{}, log.With().Str("component", "remote").Logger())

				transport = pubsub.New(client, pubsub.Options{
					PollTimeout: cfg.Transport.PollTimeout,
					BaseDelay:   cfg.Transport.BaseDelay,
					MaxDelay:    cfg.Transport.MaxDelay,
					MaxAttempts: cfg.Transport.MaxAttempts,
					Logger:      log.With().Str("component", "pubsub").Logger(),
				})

				limiter = cooldown.New(device,
					cooldown.WithWindow(cfg.Cooldown.Window),
					cooldown.WithSweepInterval(cfg.Cooldown.SweepInterval),
					cooldown.WithLogger(log.With().Str("component", "cooldown").Logger()),
				)

				counters = counter.New(client, cfg.Counters.TTL, log.With().Str("component", "counter").Logger())
				logger   = log.With().Str("component", "live").Logger()
			)

			limiter.Start(ctx)
			closers = append(closers, limiter.Close, transport.Disconnect)

			flags.Transport = transport
			flags.Service = live.New(cfg, transport, limiter, counters, logger)
			return ctx, nil
		},
	}

	app = commands.NewSendCmd(flags).Register(app)
	app = commands.NewWatchCmd(flags).Register(app)
	app = commands.NewCountsCmd(flags).Register(app)
	app = commands.NewSenderCmd(flags).Register(app)
	app = commands.NewSessionCmd(flags).Register(app)
	app = commands.NewControlCmd(flags).Register(app)
	app = commands.NewConfigValidateCmd(flags).Register(app)

	exitCode := 0
	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Println()
		printer.Ctx(ctx).FatalError(err)
		exitCode = 1
	}

	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}

	// Flush deferred logs to console after the control surface exits
	if deferredLogs != nil {
		if err := deferredLogs.Flush(zerolog.ConsoleWriter{Out: os.Stderr}); err != nil {
			fmt.Fprintf(os.Stderr, "failed to flush logs: %v\n", err)
		}
	}

	stop()
	os.Exit(exitCode)
}

// openDeviceStore opens the configured device-local key value store. The
// returned func releases it.
func openDeviceStore(cfg *config.Config) (kv.Store, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.StorageFile())
		if err != nil {
			return nil, nil, fmt.Errorf("open device storage: %w", err)
		}
		return db, func() {
			if err := db.Close(); err != nil {
				log.Warn().Err(err).Msg("close device storage")
			}
		}, nil
	default:
		return jsonfile.New(cfg.StorageFile()), func() {}, nil
	}
}

func setupLogger(level string, logFile string, deferred io.Writer) error {
	parsedLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}

	var output io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}

	if logFile != "" {
		logDir := filepath.Dir(logFile)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}

		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}

		if deferred != nil {
			output = io.MultiWriter(file, deferred)
		} else {
			output = io.MultiWriter(
				zerolog.ConsoleWriter{Out: os.Stderr},
				file,
			)
		}
	} else if deferred != nil {
		output = deferred
	}

	log.Logger = log.Output(output).Level(parsedLevel)

	return nil
}

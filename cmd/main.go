package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mediadesk/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	configPath := "config.toml"
	if p, ok := os.LookupEnv("MEDIADESK_CONFIG"); ok {
		configPath = p
	}

	config := shared.DefaultConfig()
	if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
		config = loadedConfig
	} else if !errors.Is(err, shared.ErrMissingConfig) {
		logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
	}

	if err := shared.ApplyEnv(config, ".env"); err != nil {
		logger.Fatalf("configuration error: %v", err)
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:    "mediadesk",
		Usage:   "Bulk media uploads and content administration for the admin API",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				shared.SetLogLevel(logger, log.DebugLevel)
			}
			return ctx, nil
		},
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := app.Run(ctx, os.Args)
	stop()
	if cerr := runner.Close(); cerr != nil {
		logger.Warn("failed to close journal", "error", cerr)
	}

	if err != nil {
		logger.Fatalf("application error: %v", err)
	}
}

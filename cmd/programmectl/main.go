package main

import (
	"alcyxob/coaching-programmes/internal/app"
	"alcyxob/coaching-programmes/internal/cli"
	"alcyxob/coaching-programmes/internal/config"
	"alcyxob/coaching-programmes/internal/platform/logger"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCommand(openBackend)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}

// openBackend connects to the configured MongoDB, Redis and S3.
func openBackend(ctx context.Context, opts *cli.RootOptions) (*cli.Backend, error) {
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	// Diagnostics go to stderr so stdout stays parseable.
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, err
	}

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &cli.Backend{
		Sweeper:  application.Sweeper,
		EventLog: application.EventLog,
		Archive:  application.Archive,
		Close: func() {
			application.Close()
			log.Sync()
		},
	}, nil
}

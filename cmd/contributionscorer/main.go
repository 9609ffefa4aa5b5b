package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ContributionScorer/internal/app"
	"ContributionScorer/internal/config"
	"ContributionScorer/internal/logging"
)

const usage = `usage: contributionscorer <command>

commands:
  run        process one slice of chat rows and transcripts
  reconcile  retry identity resolution on unresolved ledger rows
  schedule   run both on their cron expressions until interrupted
  migrate    create missing tables`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application failed to start", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	switch command {
	case "run":
		err = application.Run(ctx)
	case "reconcile":
		err = application.Reconcile(ctx)
	case "schedule":
		err = application.Schedule(ctx)
	case "migrate":
		err = application.Migrate(ctx)
	default:
		fmt.Fprintln(os.Stderr, usage)
		application.Close()
		os.Exit(2)
	}

	if err != nil {
		logger.Error("application stopped", "command", command, "error", err)
		application.Close()
		os.Exit(1)
	}
}

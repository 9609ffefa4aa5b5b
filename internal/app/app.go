package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"ContributionScorer/internal/config"
	"ContributionScorer/internal/infrastructure/files"
	"ContributionScorer/internal/infrastructure/llm"
	"ContributionScorer/internal/infrastructure/ml"
	"ContributionScorer/internal/infrastructure/parser"
	"ContributionScorer/internal/infrastructure/scheduler"
	"ContributionScorer/internal/infrastructure/storage"
	"ContributionScorer/internal/infrastructure/telegram"
	"ContributionScorer/internal/logging"
	"ContributionScorer/internal/oracle"
	"ContributionScorer/internal/ports"
	"ContributionScorer/internal/transcript"
	"ContributionScorer/internal/usecase"
	"ContributionScorer/pkg/logger"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	db     *sql.DB
	store  *storage.Store
	logger *slog.Logger
}

// New opens the store. Use cases are assembled per command.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	db, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	return &Application{
		cfg:    cfg,
		db:     db,
		store:  storage.NewStore(db, cfg.Database.Driver),
		logger: baseLogger,
	}, nil
}

// Close releases the database handle.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Migrate creates missing tables.
func (a *Application) Migrate(ctx context.Context) error {
	if err := a.store.Migrate(ctx); err != nil {
		return err
	}
	a.logger.Info("schema up to date", "driver", a.cfg.Database.Driver)
	return nil
}

// Run performs a single pipeline slice.
func (a *Application) Run(ctx context.Context) error {
	pipeline, err := a.pipeline()
	if err != nil {
		return err
	}
	_, err = pipeline.RunSlice(ctx)
	return err
}

// Reconcile performs a single unknown-identity sweep.
func (a *Application) Reconcile(ctx context.Context) error {
	_, err := a.reconciler().Run(ctx)
	return err
}

// Schedule runs slices and sweeps on their cron expressions until ctx ends.
func (a *Application) Schedule(ctx context.Context) error {
	pipeline, err := a.pipeline()
	if err != nil {
		return err
	}

	loc := a.cfg.Scheduler.Location()
	slices := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, loc)
	var sweeps ports.Scheduler
	if a.cfg.Scheduler.ReconcileCron != "" {
		sweeps = scheduler.NewCronScheduler(a.cfg.Scheduler.ReconcileCron, loc)
	}

	s := usecase.NewScheduler(slices, sweeps, pipeline, a.reconciler(), logger.Component(a.logger, "scheduler"))
	if err := s.Start(ctx); err != nil {
		return err
	}
	a.logger.Info("scheduler started",
		"cron", a.cfg.Scheduler.CronExpression,
		"reconcile_cron", a.cfg.Scheduler.ReconcileCron,
		"timezone", loc.String(),
	)

	<-ctx.Done()
	return s.Stop(context.WithoutCancel(ctx))
}

func (a *Application) pipeline() (*usecase.Pipeline, error) {
	completer, err := a.completer()
	if err != nil {
		return nil, err
	}

	client := oracle.New(completer, oracle.Options{
		Rubric:      a.cfg.Oracle.Rubric,
		MaxAttempts: a.cfg.Oracle.MaxAttempts,
		BaseDelay:   a.cfg.Oracle.Delay(),
		Logger:      logger.Component(a.logger, "oracle"),
	})

	registry := transcript.NewRegistry()
	registry.Register(parser.NewTextExportParser())
	registry.Register(parser.NewHTMLExportParser())

	source := parser.NewStrategySource(
		registry,
		files.NewDirectorySource(a.cfg.Transcripts.Dir, a.cfg.Transcripts.Pattern),
		a.cfg.Transcripts.Format,
		logger.Component(a.logger, "source"),
	)

	var notifier ports.Notifier
	if tg := a.cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	return usecase.NewPipeline(a.cfg, usecase.PipelineDeps{
		Rows:        a.store,
		Transcripts: source,
		Checkpoints: a.store,
		Hashes:      a.store,
		History:     a.store,
		Identities:  a.store,
		Ledger:      a.store,
		Oracle:      client,
		Notifier:    notifier,
		Logger:      logger.Component(a.logger, "pipeline"),
	}), nil
}

func (a *Application) reconciler() *usecase.Reconciler {
	return usecase.NewReconciler(a.cfg, a.store, a.store, logger.Component(a.logger, "reconciler"))
}

// completer picks the oracle transport. Scoring without one would write
// Unknown for every entry, so a missing transport is an error.
func (a *Application) completer() (ports.Completer, error) {
	switch a.cfg.Oracle.Provider {
	case "", "openai":
		return llm.NewChatGPTClient(a.cfg.Oracle)
	case "ml":
		if a.cfg.Oracle.Endpoint == "" {
			return nil, fmt.Errorf("oracle provider ml needs an endpoint")
		}
		return ml.NewClient(a.cfg.Oracle.Endpoint, a.cfg.Oracle.APIKey, a.cfg.Oracle.Model), nil
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", a.cfg.Oracle.Provider)
	}
}

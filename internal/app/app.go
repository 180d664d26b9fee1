package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"NewsRefinery/internal/config"
	"NewsRefinery/internal/dedup"
	"NewsRefinery/internal/infrastructure/scheduler"
	"NewsRefinery/internal/infrastructure/scraper"
	"NewsRefinery/internal/infrastructure/storage"
	"NewsRefinery/internal/infrastructure/telegram"
	"NewsRefinery/internal/logging"
	"NewsRefinery/internal/normalizer"
	"NewsRefinery/internal/notify"
	"NewsRefinery/internal/ports"
	"NewsRefinery/internal/scanner"
	"NewsRefinery/internal/usecase"
	"NewsRefinery/internal/validator"
)

// Application wires config to components and owns their lifecycle.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	pipeline   *usecase.Pipeline
	scheduler  *usecase.Scheduler
	dispatcher *notify.Dispatcher
	db         *sql.DB
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	runtime := config.NewRuntime(cfg.Thresholds)

	registry := scanner.NewRegistry()
	registry.Register(scraper.NewHTMLScanner(nil))
	source := scraper.NewStrategySource(registry, cfg.Sources, baseLogger.With("component", "source"))

	var db *sql.DB
	var repository ports.NewsRepository
	if cfg.Database.DSN != "" {
		opened, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		db = opened
		repository = storage.NewPostgresRepository(db)
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" {
		notifier = telegram.NewNotifier(
			cfg.Notifications.Telegram.BotToken,
			cfg.Notifications.Telegram.ChatID,
		)
	}
	dispatcher := notify.NewDispatcher(notifier, runtime, cfg.Pipeline.AlertQueueSize,
		baseLogger.With("component", "notify"))

	engine := dedup.New(runtime, baseLogger.With("component", "dedup"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Normalizer: normalizer.New(runtime),
		Dedup:      engine,
		Validator:  validator.New(runtime),
		Repository: repository,
		Alerts:     dispatcher,
		Logger:     baseLogger.With("component", "pipeline"),
		Workers:    cfg.Pipeline.Workers,
	})

	cronDriver := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location())
	sched := usecase.NewScheduler(cronDriver, pipeline, cfg.Scheduler.RunTimeout,
		baseLogger.With("component", "scheduler"))

	return &Application{
		cfg:        cfg,
		logger:     baseLogger,
		pipeline:   pipeline,
		scheduler:  sched,
		dispatcher: dispatcher,
		db:         db,
	}, nil
}

// Run starts the alert worker and either one immediate batch run (no
// cron configured) or the recurring schedule, blocking until ctx ends.
func (a *Application) Run(ctx context.Context) error {
	a.dispatcher.Start(ctx)
	defer a.dispatcher.Stop()

	if a.db != nil {
		defer a.db.Close()
	}

	if a.cfg.Scheduler.CronExpression == "" {
		_, err := a.pipeline.Run(ctx)
		return err
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()
	return a.scheduler.Stop(context.Background())
}

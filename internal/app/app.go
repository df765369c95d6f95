package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/config"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/filter"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/infrastructure/arxiv"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/infrastructure/digest"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/infrastructure/gemini"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/infrastructure/scheduler"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/infrastructure/telegram"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/infrastructure/zeroclaw"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/ledger"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/logging"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/schedule"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/scoring"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/usecase"
)

// Application wires config to the cycle orchestrator and owns the
// ledger lifecycle.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
	ledger *ledger.SQLiteLedger
	cycle  *usecase.Cycle
}

// New builds a runnable application instance. The ledger database is
// opened here; callers must Close the application when done.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	if cfg.Gemini.APIKey == "" {
		return nil, errors.New("gemini api key is not configured (set GOOGLE_API_KEY)")
	}

	sched, err := schedule.New(cfg.Schedule.AnchorDays)
	if err != nil {
		return nil, fmt.Errorf("build schedule: %w", err)
	}

	runLedger, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return nil, fmt.Errorf("open run ledger: %w", err)
	}

	fetcher := arxiv.NewFetcher(cfg.Arxiv, nil, logging.Component(baseLogger, "arxiv"))
	candidateFilter := filter.New(cfg.Filter, logging.Component(baseLogger, "filter"))
	oracle := gemini.NewClient(cfg.Gemini)
	scorer := scoring.New(cfg.Scoring, oracle, logging.Component(baseLogger, "scoring"))
	store := zeroclaw.NewStore(cfg.Memory, logging.Component(baseLogger, "memory"))
	publisher := digest.NewPublisher(cfg.Digest, logging.Component(baseLogger, "digest"))
	announcer := telegram.NewAnnouncer(cfg.Telegram)

	cycle := usecase.NewCycle(usecase.CycleDeps{
		Schedule:  sched,
		Ledger:    runLedger,
		Source:    fetcher,
		Filter:    candidateFilter,
		Scorer:    scorer,
		Store:     store,
		Publisher: publisher,
		Announcer: announcer,
		Logger:    logging.Component(baseLogger, "cycle"),
		// The schedule is evaluated on the configured calendar, not the
		// host's local date.
		Now: func() time.Time { return time.Now().In(cfg.Schedule.Location()) },
	})

	return &Application{
		cfg:    cfg,
		logger: baseLogger,
		ledger: runLedger,
		cycle:  cycle,
	}, nil
}

// RunOnce executes a single cycle check and returns its outcome.
func (a *Application) RunOnce(ctx context.Context, dryRun bool) (usecase.Result, error) {
	return a.cycle.Run(ctx, dryRun)
}

// RunDaemon triggers the cycle immediately and then on a fixed interval
// until ctx is cancelled. The cycle guard makes extra triggers no-ops.
func (a *Application) RunDaemon(ctx context.Context) error {
	driver := scheduler.NewTickerDriver(a.cfg.Schedule.CheckInterval())
	sched := usecase.NewScheduler(driver, a.cycle, logging.Component(a.logger, "scheduler"))

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()
	return sched.Stop(context.Background())
}

// Close releases the ledger database handle.
func (a *Application) Close() error {
	if a.ledger == nil {
		return nil
	}
	return a.ledger.Close()
}

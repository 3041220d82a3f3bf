package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"DirectoryHarvester/internal/config"
	"DirectoryHarvester/internal/domain"
	"DirectoryHarvester/internal/infrastructure/browser"
	"DirectoryHarvester/internal/infrastructure/parser"
	"DirectoryHarvester/internal/infrastructure/report"
	"DirectoryHarvester/internal/infrastructure/storage"
	"DirectoryHarvester/internal/logging"
	"DirectoryHarvester/internal/pagination"
	"DirectoryHarvester/internal/ports"
	"DirectoryHarvester/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
	out    io.Writer
	now    func() time.Time
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	return &Application{
		cfg:    cfg,
		logger: baseLogger,
		out:    os.Stdout,
		now:    time.Now,
	}
}

// Run opens the browser session, harvests the directory and reports the run.
// Only a failure to bring the browser up on the directory is returned; every
// harvest outcome, including zero records, is a normal exit.
func (a *Application) Run(ctx context.Context) error {
	a.logger.Info("starting directory harvest", "url", a.cfg.Harvest.URL, "max_pages", a.cfg.Harvest.MaxPages)

	session, err := browser.Launch(ctx, a.browserOptions())
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			a.logger.Warn("browser close", "error", err)
		}
	}()

	page, err := session.Open(ctx, a.cfg.Harvest.URL)
	if err != nil {
		return fmt.Errorf("open directory: %w", err)
	}

	a.Harvest(ctx, page)
	return nil
}

// Harvest runs the pagination loop on an already opened page and publishes the summary.
func (a *Application) Harvest(ctx context.Context, page ports.Page) domain.HarvestResult {
	cfg := a.cfg.Harvest

	extractor := parser.NewTableExtractor(cfg.ExtractTimeout, a.logger.With("component", "extractor"))
	controller := pagination.NewController(page, extractor, pagination.Config{
		Fast: cfg.FastPoll,
		Slow: cfg.SlowPoll,
	}, a.logger.With("component", "pagination"))
	sink := storage.NewCSVSink(a.cfg.Output.Dir, a.now(), a.logger.With("component", "sink"))

	deps := usecase.HarvestDeps{
		Page:      page,
		Extractor: extractor,
		Paginator: controller,
		Sink:      sink,
		Logger:    a.logger.With("component", "harvest"),
	}
	reporter := report.NewTableReporter(a.out, a.logger.With("component", "report"))
	if journal := a.openJournal(ctx); journal != nil {
		defer func() {
			if err := journal.Close(); err != nil {
				a.logger.Warn("journal close", "error", err)
			}
		}()
		deps.Journal = journal
		if prev, err := journal.LastRun(ctx); err == nil {
			reporter.WithPrevious(prev)
		}
	}

	harvester := usecase.NewHarvester(deps, usecase.HarvestOptions{
		URL:             cfg.URL,
		MaxPages:        cfg.MaxPages,
		CheckpointEvery: cfg.CheckpointEvery,
		WriteEveryPage:  a.cfg.Output.WriteEveryPage,
		PageDelay:       cfg.PageDelay,
		OnRepeat:        usecase.RepeatPolicy(cfg.OnRepeat),
	})
	result := harvester.Run(ctx)

	if err := reporter.PublishSummary(context.WithoutCancel(ctx), result); err != nil {
		a.logger.Warn("publish summary", "error", err)
	}
	return result
}

// openJournal returns nil when the journal is disabled or cannot be opened.
func (a *Application) openJournal(ctx context.Context) *storage.SQLiteJournal {
	path := a.cfg.JournalPath()
	if path == "" {
		return nil
	}
	journal, err := storage.OpenSQLiteJournal(ctx, path)
	if err != nil {
		a.logger.Warn("run journal unavailable, continuing without it", "path", path, "error", err)
		return nil
	}
	return journal
}

func (a *Application) browserOptions() browser.Options {
	b := a.cfg.Browser
	return browser.Options{
		RemoteURL:         b.RemoteURL,
		BrowserBin:        b.Bin,
		Headless:          b.IsHeadless(),
		NoSandbox:         b.NoSandbox,
		UserAgent:         b.UserAgent,
		NavigationTimeout: b.NavigationTimeout,
		ActionTimeout:     b.ActionTimeout,
		SettleDelay:       b.SettleDelay,
		Trace:             b.Trace,
		Logger:            a.logger.With("component", "browser"),
	}
}

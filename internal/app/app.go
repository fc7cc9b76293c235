package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maltedev/ddtech-scraper/internal/browser"
	"github.com/maltedev/ddtech-scraper/internal/clock"
	"github.com/maltedev/ddtech-scraper/internal/config"
	"github.com/maltedev/ddtech-scraper/internal/database"
	"github.com/maltedev/ddtech-scraper/internal/events"
	"github.com/maltedev/ddtech-scraper/internal/metrics"
	"github.com/maltedev/ddtech-scraper/internal/parser"
	"github.com/maltedev/ddtech-scraper/internal/ratelimit"
	"github.com/maltedev/ddtech-scraper/internal/scraper"
	"github.com/maltedev/ddtech-scraper/internal/storage"
	"github.com/redis/go-redis/v9"
)

// App holds one fully wired scrape pipeline and the optional stores behind
// it.
type App struct {
	Config    *config.Config
	Metrics   *metrics.Metrics
	Session   *browser.Session
	Pipeline  *scraper.Pipeline
	Publisher *events.Publisher
	Sinks     []scraper.Sink

	closers []func()
	logger  *slog.Logger
}

// New wires the session, discoverer, extractor, runner and sinks. The CSV
// sink is always first; postgres and redis follow when enabled.
func New(ctx context.Context, cfg *config.Config, reporter scraper.Reporter, logger *slog.Logger) (*App, error) {
	clk := clock.Real{}
	m := metrics.New()

	a := &App{
		Config:  cfg,
		Metrics: m,
		logger:  logger.With("component", "app"),
	}

	a.Session = browser.New(&browser.Options{
		DriverDir:   cfg.Browser.DriverDir,
		Headless:    cfg.Browser.Headless,
		UserAgent:   cfg.Browser.UserAgent,
		LoadTimeout: cfg.Browser.LoadTimeout,
		SettleDelay: cfg.Browser.SettleDelay,
	}, clk, logger)

	a.Sinks = []scraper.Sink{storage.NewCSVSink(cfg.Output.ProductsFile)}

	if cfg.Database.Enabled {
		db, err := database.New(ctx, database.Config{
			DSN:      cfg.Database.DSN(),
			MaxConns: cfg.Database.MaxConns,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)

		repo := database.NewProductRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
		a.Sinks = append(a.Sinks, repo)
	}

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, func() { client.Close() })

		if err := client.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		a.Publisher = events.NewPublisher(client, cfg.Redis.Stream, clk, logger)
		a.Sinks = append(a.Sinks, a.Publisher)
	}

	p := parser.NewDDTechParser()
	snaps := storage.NewSnapshots("")

	discoverer := scraper.NewDiscoverer(scraper.DiscovererConfig{
		Session:      a.Session,
		Parser:       p,
		Snapshots:    snaps,
		SnapshotFile: cfg.Output.CategorySnapshotFile,
		Metrics:      m,
		Logger:       logger,
	})

	extractor := scraper.NewExtractor(scraper.ExtractorConfig{
		Session:      a.Session,
		Parser:       p,
		Snapshots:    snaps,
		SnapshotFile: cfg.Output.ProductSnapshotFile,
		Clock:        clk,
		Metrics:      m,
		Logger:       logger,
	})

	runner := scraper.NewRunner(scraper.RunnerConfig{
		Session:   a.Session,
		Extractor: extractor,
		Pacer:     ratelimit.NewFixedPacer(cfg.Scraper.PacingDelay, clk),
		Sinks:     a.Sinks,
		Reporter:  reporter,
		Clock:     clk,
		Metrics:   m,
		Logger:    logger,
	})

	a.Pipeline = scraper.NewPipeline(scraper.PipelineConfig{
		Session:    a.Session,
		Discoverer: discoverer,
		Runner:     runner,
		Reporter:   reporter,
		Metrics:    m,
		Logger:     logger,
	})

	return a, nil
}

// Run scrapes categoryURL and, when redis is enabled, announces the result.
func (a *App) Run(ctx context.Context, categoryURL string, maxCount int) (*scraper.RunSummary, error) {
	summary, err := a.Pipeline.Run(ctx, categoryURL, maxCount)

	if summary != nil && a.Publisher != nil {
		if _, pubErr := a.Publisher.PublishRun(context.WithoutCancel(ctx), summary); pubErr != nil {
			a.logger.Warn("failed to publish run summary", "error", pubErr)
		}
	}

	return summary, err
}

// RunDefault scrapes the configured category with the configured cap.
func (a *App) RunDefault(ctx context.Context) (*scraper.RunSummary, error) {
	return a.Run(ctx, a.Config.Scraper.CategoryURL, a.Config.Scraper.MaxProducts)
}

// Close releases the browser and every store, in reverse order of creation.
func (a *App) Close() {
	if a.Session != nil {
		if err := a.Session.Close(); err != nil {
			a.logger.Warn("failed to close browser session", "error", err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

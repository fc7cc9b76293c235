package scraper

import (
	"context"
	"log/slog"

	"github.com/maltedev/ddtech-scraper/internal/metrics"
)

// Pipeline runs discovery followed by the batch over the discovered URLs.
type Pipeline struct {
	session    Session
	discoverer *Discoverer
	runner     *Runner
	reporter   Reporter
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

type PipelineConfig struct {
	Session    Session
	Discoverer *Discoverer
	Runner     *Runner
	Reporter   Reporter
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Reporter == nil {
		cfg.Reporter = NopReporter{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Pipeline{
		session:    cfg.Session,
		discoverer: cfg.Discoverer,
		runner:     cfg.Runner,
		reporter:   cfg.Reporter,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger.With("component", "pipeline"),
	}
}

// Run discovers up to maxCount products under categoryURL and scrapes them.
// A discovery failure ends the run with no summary; the session is still
// released.
func (p *Pipeline) Run(ctx context.Context, categoryURL string, maxCount int) (*RunSummary, error) {
	p.metrics.IncRun()
	p.reporter.DiscoveryStarted(categoryURL)

	urls, err := p.discoverer.Discover(ctx, categoryURL, maxCount)
	if err != nil {
		if closeErr := p.session.Close(); closeErr != nil {
			p.logger.Warn("failed to close browser session", "error", closeErr)
		}
		p.logger.Error("discovery failed", "url", categoryURL, "fatal", IsFatal(err), "error", err)
		return nil, err
	}

	p.reporter.DiscoveryFinished(len(urls))

	summary, err := p.runner.Run(ctx, urls)
	summary.CategoryURL = categoryURL

	p.reporter.Summary(summary)

	return summary, err
}

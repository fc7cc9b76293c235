package scraper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maltedev/ddtech-scraper/internal/metrics"
	"github.com/maltedev/ddtech-scraper/internal/parser"
)

// Discoverer collects product URLs from a category page.
type Discoverer struct {
	session      Session
	parser       parser.Parser
	snapshots    SnapshotWriter
	snapshotFile string
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

type DiscovererConfig struct {
	Session      Session
	Parser       parser.Parser
	Snapshots    SnapshotWriter
	SnapshotFile string
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
}

func NewDiscoverer(cfg DiscovererConfig) *Discoverer {
	if cfg.Parser == nil {
		cfg.Parser = parser.NewDDTechParser()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Discoverer{
		session:      cfg.Session,
		parser:       cfg.Parser,
		snapshots:    cfg.Snapshots,
		snapshotFile: cfg.SnapshotFile,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger.With("component", "discoverer"),
	}
}

// Discover loads categoryURL and returns up to maxCount distinct product URLs
// in page order. A page without product links yields an empty slice.
func (d *Discoverer) Discover(ctx context.Context, categoryURL string, maxCount int) ([]string, error) {
	d.logger.Info("discovering products", "url", categoryURL, "max", maxCount)

	if err := d.session.EnsureOpen(ctx); err != nil {
		return nil, newFailure(categoryURL, err)
	}

	if err := d.session.Navigate(ctx, categoryURL); err != nil {
		return nil, newFailure(categoryURL, err)
	}

	source, err := d.session.PageSource()
	if err != nil {
		return nil, newFailure(categoryURL, err)
	}

	if d.snapshots != nil && d.snapshotFile != "" {
		if path, err := d.snapshots.WriteRaw(d.snapshotFile, source); err != nil {
			d.logger.Warn("failed to write category snapshot", "file", d.snapshotFile, "error", err)
		} else {
			d.logger.Debug("category snapshot written", "file", path)
		}
	}

	links, err := d.parser.ExtractProductLinks(source, maxCount)
	if err != nil {
		return nil, newFailure(categoryURL, fmt.Errorf("failed to extract product links: %w", err))
	}

	d.metrics.SetDiscovered(len(links))
	d.logger.Info("discovered products", "count", len(links))

	return links, nil
}

package scraper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maltedev/ddtech-scraper/internal/clock"
	"github.com/maltedev/ddtech-scraper/internal/metrics"
	"github.com/maltedev/ddtech-scraper/internal/models"
	"github.com/maltedev/ddtech-scraper/internal/parser"
)

// Extractor loads a single product page and turns it into a ProductRecord.
type Extractor struct {
	session      Session
	parser       parser.Parser
	snapshots    SnapshotWriter
	snapshotFile string
	clock        clock.Clock
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

type ExtractorConfig struct {
	Session      Session
	Parser       parser.Parser
	Snapshots    SnapshotWriter
	SnapshotFile string
	Clock        clock.Clock
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
}

func NewExtractor(cfg ExtractorConfig) *Extractor {
	if cfg.Parser == nil {
		cfg.Parser = parser.NewDDTechParser()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Extractor{
		session:      cfg.Session,
		parser:       cfg.Parser,
		snapshots:    cfg.Snapshots,
		snapshotFile: cfg.SnapshotFile,
		clock:        cfg.Clock,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger.With("component", "extractor"),
	}
}

// Extract returns either a complete record or a *Failure, never both. Missing
// page elements are not failures; they are stored as models.NotFound.
func (e *Extractor) Extract(ctx context.Context, url string, captureSnapshot bool) (rec *models.ProductRecord, err error) {
	started := e.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = &Failure{Kind: FailureExtractionFault, URL: url, Err: fmt.Errorf("panic during extraction: %v", r)}
		}
		e.metrics.ObserveExtract(e.clock.Now().Sub(started))
	}()

	if err := e.session.EnsureOpen(ctx); err != nil {
		return nil, newFailure(url, err)
	}

	if err := e.session.Navigate(ctx, url); err != nil {
		return nil, newFailure(url, err)
	}

	source, err := e.session.PageSource()
	if err != nil {
		return nil, newFailure(url, err)
	}

	if captureSnapshot {
		e.writeSnapshot(source)
	}

	rec, err = e.parser.ParseProductPage(source, url, e.clock.Now())
	if err != nil {
		return nil, newFailure(url, err)
	}

	if missing := rec.MissingFields(); len(missing) > 0 {
		e.logger.Debug("fields not found", "url", url, "fields", missing)
	}

	return rec, nil
}

func (e *Extractor) writeSnapshot(source string) {
	if e.snapshots == nil || e.snapshotFile == "" {
		return
	}

	path, err := e.snapshots.WritePretty(e.snapshotFile, source)
	if err != nil {
		e.logger.Warn("failed to write product snapshot", "file", e.snapshotFile, "error", err)
		return
	}

	e.logger.Info("product snapshot written", "file", path)
}

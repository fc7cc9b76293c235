package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/maltedev/ddtech-scraper/internal/clock"
	"github.com/maltedev/ddtech-scraper/internal/metrics"
	"github.com/maltedev/ddtech-scraper/internal/models"
	"github.com/maltedev/ddtech-scraper/internal/ratelimit"
	"github.com/maltedev/ddtech-scraper/internal/storage"
)

// RunState is the position of the batch runner in its loop over URLs.
type RunState int

const (
	StatePending RunState = iota
	StateProcessing
	StateRecording
	StateDone
)

func (s RunState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateProcessing:
		return "processing"
	case StateRecording:
		return "recording"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

type FailedURL struct {
	Index int
	URL   string
	Kind  FailureKind
	Err   error
}

type SinkError struct {
	Sink string
	Err  error
}

type RunSummary struct {
	CategoryURL string
	Total       int
	Succeeded   int
	Failed      int
	Saved       int
	Cancelled   bool
	Records     []*models.ProductRecord
	Failures    []FailedURL
	SinkErrors  []SinkError
	StartedAt   time.Time
	FinishedAt  time.Time
}

// SinkErr joins every sink failure, or returns nil.
func (s *RunSummary) SinkErr() error {
	var errs []error
	for _, se := range s.SinkErrors {
		errs = append(errs, se.Err)
	}
	return errors.Join(errs...)
}

// Runner walks a URL list one page at a time. A failing URL is counted and
// skipped; it never stops the batch.
type Runner struct {
	session   Session
	extractor ProductExtractor
	pacer     ratelimit.RateLimiter
	sinks     []Sink
	reporter  Reporter
	clock     clock.Clock
	metrics   *metrics.Metrics
	logger    *slog.Logger
	state     RunState
}

type RunnerConfig struct {
	Session   Session
	Extractor ProductExtractor
	Pacer     ratelimit.RateLimiter
	// Sinks receive the aggregate in order. The first one is the primary
	// export and decides RunSummary.Saved.
	Sinks    []Sink
	Reporter Reporter
	Clock    clock.Clock
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.Pacer == nil {
		cfg.Pacer = ratelimit.NewFixedPacer(0, cfg.Clock)
	}
	if cfg.Reporter == nil {
		cfg.Reporter = NopReporter{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Runner{
		session:   cfg.Session,
		extractor: cfg.Extractor,
		pacer:     cfg.Pacer,
		sinks:     cfg.Sinks,
		reporter:  cfg.Reporter,
		clock:     cfg.Clock,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger.With("component", "runner"),
		state:     StatePending,
	}
}

func (r *Runner) State() RunState {
	return r.state
}

func (r *Runner) setState(s RunState) {
	r.logger.Debug("state transition", "from", r.state, "to", s)
	r.state = s
}

// Run extracts every URL, closes the session once and hands the records to
// the sinks when at least one page succeeded. The returned error is non-nil
// only when ctx was cancelled; the summary is always returned.
func (r *Runner) Run(ctx context.Context, urls []string) (*RunSummary, error) {
	summary := &RunSummary{
		Total:     len(urls),
		StartedAt: r.clock.Now(),
	}
	records := make([]*models.ProductRecord, 0, len(urls))

	r.setState(StatePending)
	r.reporter.BatchStarted(len(urls))

	var runErr error

	for i, url := range urls {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		r.setState(StateProcessing)
		r.reporter.URLStarted(i+1, len(urls), url)

		rec, err := r.extractor.Extract(ctx, url, i == 0)
		if err == nil && rec.IsZero() {
			err = &Failure{Kind: FailureExtractionFault, URL: url, Err: ErrEmptyResult}
		}

		r.setState(StateRecording)

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				runErr = ctxErr
				break
			}

			f := AsFailure(url, err)
			summary.Failed++
			summary.Failures = append(summary.Failures, FailedURL{Index: i + 1, URL: url, Kind: f.Kind, Err: f.Err})
			r.metrics.IncFailed(f.Kind.String())
			r.logger.Warn("product extraction failed", "url", url, "kind", f.Kind, "error", f.Err)
			r.reporter.URLFailed(i+1, url, f)
		} else {
			records = append(records, rec)
			summary.Succeeded++
			r.metrics.IncScraped()
			r.reporter.URLSucceeded(i+1, rec)
		}

		if i < len(urls)-1 {
			r.setState(StatePending)
			r.reporter.Pacing(r.pacer.Delay())
			if err := r.pacer.Wait(ctx); err != nil {
				runErr = err
				break
			}
		}
	}

	r.setState(StateDone)
	summary.Cancelled = runErr != nil

	if err := r.session.Close(); err != nil {
		r.logger.Warn("failed to close browser session", "error", err)
	}

	summary.Records = records
	if len(records) > 0 {
		r.export(ctx, summary)
	}

	summary.FinishedAt = r.clock.Now()

	r.logger.Info("batch finished",
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"saved", summary.Saved,
	)

	return summary, runErr
}

func (r *Runner) export(ctx context.Context, summary *RunSummary) {
	// completed records are exported even when ctx is already cancelled
	ctx = context.WithoutCancel(ctx)

	for i, sink := range r.sinks {
		err := sink.Write(ctx, summary.Records)
		r.metrics.AddExported(sink.Name(), err == nil, len(summary.Records))
		r.reporter.SinkWritten(sink.Name(), len(summary.Records), err)

		if err != nil {
			if errors.Is(err, storage.ErrNoRecords) {
				r.logger.Info("sink skipped, nothing to write", "sink", sink.Name())
				continue
			}
			r.logger.Error("sink write failed", "sink", sink.Name(), "error", err)
			summary.SinkErrors = append(summary.SinkErrors, SinkError{Sink: sink.Name(), Err: err})
			continue
		}

		if i == 0 {
			summary.Saved = len(summary.Records)
		}
	}
}

package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/maltedev/ddtech-scraper/internal/browser"
	"github.com/maltedev/ddtech-scraper/internal/models"
)

var ErrEmptyResult = errors.New("extraction returned no record")

// Session is the browser capability the pipeline drives. browser.Session is
// the production implementation.
type Session interface {
	EnsureOpen(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	PageSource() (string, error)
	Close() error
}

type Sink interface {
	Name() string
	Write(ctx context.Context, records []*models.ProductRecord) error
}

type SnapshotWriter interface {
	WriteRaw(name, source string) (string, error)
	WritePretty(name, source string) (string, error)
}

type ProductExtractor interface {
	Extract(ctx context.Context, url string, captureSnapshot bool) (*models.ProductRecord, error)
}

// FailureKind tags why a URL produced no record.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureSessionFatal
	FailureNavigationTimeout
	FailureExtractionFault
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureSessionFatal:
		return "session_fatal"
	case FailureNavigationTimeout:
		return "navigation_timeout"
	case FailureExtractionFault:
		return "extraction_fault"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Failure is the error result of a discovery or extraction step.
type Failure struct {
	Kind FailureKind
	URL  string
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Kind, f.URL, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Fatal reports whether the failure should abort the whole run rather than
// a single URL.
func (f *Failure) Fatal() bool {
	return f.Kind == FailureSessionFatal
}

func newFailure(url string, err error) *Failure {
	return &Failure{Kind: ClassifyError(err), URL: url, Err: err}
}

// ClassifyError maps an error from the session or parser to a FailureKind.
func ClassifyError(err error) FailureKind {
	if err == nil {
		return FailureNone
	}

	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}

	switch {
	case errors.Is(err, browser.ErrSessionUnavailable):
		return FailureSessionFatal
	case errors.Is(err, browser.ErrNavigationTimeout):
		return FailureNavigationTimeout
	default:
		return FailureExtractionFault
	}
}

// AsFailure returns err as a *Failure, classifying it when needed.
func AsFailure(url string, err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return newFailure(url, err)
}

// IsFatal reports whether err carries a session-level failure.
func IsFatal(err error) bool {
	return ClassifyError(err) == FailureSessionFatal
}

package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/ddtech-scraper/internal/clock"
	"github.com/maltedev/ddtech-scraper/internal/scraper"
)

var (
	ErrRunInProgress = errors.New("a scrape run is already in progress")
	ErrRunNotFound   = errors.New("run not found")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// RunFunc executes one scrape. Implementations own the browser session for
// the duration of the call.
type RunFunc func(ctx context.Context, categoryURL string, maxCount int) (*scraper.RunSummary, error)

// Run represents a scrape run triggered through the manager
type Run struct {
	ID          string     `json:"id"`
	CategoryURL string     `json:"category_url"`
	MaxCount    int        `json:"max_count"`
	Status      Status     `json:"status"`
	Total       int        `json:"total"`
	Succeeded   int        `json:"succeeded"`
	Failed      int        `json:"failed"`
	Saved       int        `json:"saved"`
	FailedURLs  []string   `json:"failed_urls,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Manager runs at most one scrape at a time in the background and keeps the
// history in memory.
type Manager struct {
	mu     sync.Mutex
	runs   map[string]*Run
	active string

	run    RunFunc
	clock  clock.Clock
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(run RunFunc, clk clock.Clock, logger *slog.Logger) *Manager {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		runs:   make(map[string]*Run),
		run:    run,
		clock:  clk,
		logger: logger.With("component", "job_manager"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start registers a run and executes it in the background. It fails with
// ErrRunInProgress while another run is pending or running.
func (m *Manager) Start(categoryURL string, maxCount int) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ctx.Err(); err != nil {
		return nil, fmt.Errorf("manager is shut down: %w", err)
	}

	if m.active != "" {
		return nil, ErrRunInProgress
	}

	r := &Run{
		ID:          uuid.New().String(),
		CategoryURL: categoryURL,
		MaxCount:    maxCount,
		Status:      StatusPending,
		CreatedAt:   m.clock.Now(),
	}
	m.runs[r.ID] = r
	m.active = r.ID

	m.logger.Info("run created", "id", r.ID, "url", categoryURL, "max", maxCount)

	m.wg.Add(1)
	go m.execute(r.ID)

	snapshot := *r
	return &snapshot, nil
}

func (m *Manager) execute(id string) {
	defer m.wg.Done()

	m.update(id, func(r *Run) {
		now := m.clock.Now()
		r.Status = StatusRunning
		r.StartedAt = &now
	})

	r, _ := m.Get(id)
	summary, err := m.run(m.ctx, r.CategoryURL, r.MaxCount)

	m.update(id, func(r *Run) {
		now := m.clock.Now()
		r.CompletedAt = &now

		if summary != nil {
			r.Total = summary.Total
			r.Succeeded = summary.Succeeded
			r.Failed = summary.Failed
			r.Saved = summary.Saved
			for _, f := range summary.Failures {
				r.FailedURLs = append(r.FailedURLs, f.URL)
			}
		}

		if err != nil {
			r.Status = StatusFailed
			r.Error = err.Error()
			return
		}
		r.Status = StatusCompleted
	})

	m.mu.Lock()
	m.active = ""
	m.mu.Unlock()

	if err != nil {
		m.logger.Error("run failed", "id", id, "error", err)
		return
	}
	m.logger.Info("run completed", "id", id)
}

func (m *Manager) update(id string, fn func(*Run)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.runs[id]; ok {
		fn(r)
	}
}

// Get returns a copy of the run with the given ID.
func (m *Manager) Get(id string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}

	snapshot := *r
	snapshot.FailedURLs = append([]string(nil), r.FailedURLs...)
	return &snapshot, nil
}

// List returns all runs, newest first.
func (m *Manager) List() []*Run {
	m.mu.Lock()
	defer m.mu.Unlock()

	runs := make([]*Run, 0, len(m.runs))
	for _, r := range m.runs {
		snapshot := *r
		runs = append(runs, &snapshot)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	return runs
}

// Shutdown cancels the active run and waits for it to return or ctx to end.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until no run is executing.
func (m *Manager) Wait() {
	m.wg.Wait()
}

package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/maltedev/ddtech-scraper/internal/jobs"
)

// RunManager is the part of jobs.Manager the handlers use.
type RunManager interface {
	Start(categoryURL string, maxCount int) (*jobs.Run, error)
	Get(id string) (*jobs.Run, error)
	List() []*jobs.Run
}

type Handlers struct {
	runs            RunManager
	defaultCategory string
	defaultMax      int
	logger          *slog.Logger
}

func NewHandlers(runs RunManager, defaultCategory string, defaultMax int, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		runs:            runs,
		defaultCategory: defaultCategory,
		defaultMax:      defaultMax,
		logger:          logger.With("component", "api"),
	}
}

// CreateRunRequest represents the body of POST /api/v1/runs. Both fields are
// optional.
type CreateRunRequest struct {
	CategoryURL string `json:"category_url"`
	MaxCount    int    `json:"max_count"`
}

// CreateRun starts a scrape in the background
func (h *Handlers) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CategoryURL == "" {
		req.CategoryURL = h.defaultCategory
	}
	if req.MaxCount == 0 {
		req.MaxCount = h.defaultMax
	}

	if u, err := url.Parse(req.CategoryURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		h.respondError(w, http.StatusBadRequest, "category_url must be an absolute http(s) URL")
		return
	}
	if req.MaxCount < 1 {
		h.respondError(w, http.StatusBadRequest, "max_count must be at least 1")
		return
	}

	run, err := h.runs.Start(req.CategoryURL, req.MaxCount)
	if errors.Is(err, jobs.ErrRunInProgress) {
		h.respondError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("failed to start run", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to start run")
		return
	}

	h.respondJSON(w, http.StatusAccepted, run)
}

// GetRun returns a single run by ID
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if runID == "" {
		h.respondError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	run, err := h.runs.Get(runID)
	if errors.Is(err, jobs.ErrRunNotFound) {
		h.respondError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	h.respondJSON(w, http.StatusOK, run)
}

// ListRuns returns every run, newest first
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.runs.List())
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

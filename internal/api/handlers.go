// Package api exposes scan jobs and live progress over HTTP. The progress
// and logs endpoints are designed for UI polling (~500ms) and never block
// on in-flight fetches.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hnolivos/arbitrage-scanner/internal/jobs"
	"github.com/hnolivos/arbitrage-scanner/internal/progress"
)

type Handlers struct {
	jobs    *jobs.Manager
	tracker *progress.Tracker
	logger  *slog.Logger
}

func NewHandlers(jobs *jobs.Manager, tracker *progress.Tracker, logger *slog.Logger) *Handlers {
	return &Handlers{
		jobs:    jobs,
		tracker: tracker,
		logger:  logger.With("component", "api"),
	}
}

// Routes mounts all API endpoints on a fresh router.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/scans", h.CreateScan)
		r.Get("/scans", h.ListScans)
		r.Get("/scans/{jobID}", h.GetScan)
		r.Get("/progress", h.GetProgress)
		r.Get("/logs", h.GetLogs)
	})

	r.Get("/healthz", h.Health)

	return r
}

// CreateScanRequest is the body for POST /api/v1/scans.
type CreateScanRequest struct {
	URLs []string `json:"urls"`
}

// CreateScanResponse is returned on job creation.
type CreateScanResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// CreateScan handles new scan job creation.
func (h *Handlers) CreateScan(w http.ResponseWriter, r *http.Request) {
	var req CreateScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.URLs) == 0 {
		h.respondError(w, http.StatusBadRequest, "urls is required")
		return
	}

	job, err := h.jobs.Create(req.URLs)
	if err != nil {
		h.logger.Error("failed to create job", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	h.respondJSON(w, http.StatusCreated, CreateScanResponse{
		JobID:  job.ID,
		Status: string(job.Status),
		Total:  len(job.URLs),
	})
}

// GetScan handles job status retrieval.
func (h *Handlers) GetScan(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		h.respondError(w, http.StatusBadRequest, "job ID is required")
		return
	}

	job, err := h.jobs.Get(jobID)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "job not found")
		return
	}

	h.respondJSON(w, http.StatusOK, job)
}

// ListScans handles listing recent jobs.
func (h *Handlers) ListScans(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.jobs.List(limitParam(r, 100)))
}

// GetProgress serves the live progress snapshot of the current scan.
func (h *Handlers) GetProgress(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.tracker.Snapshot())
}

// LogsResponse wraps the recent log entries.
type LogsResponse struct {
	Logs []progress.Entry `json:"logs"`
}

// GetLogs serves the most recent scan log entries, oldest first.
func (h *Handlers) GetLogs(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, LogsResponse{Logs: h.tracker.RecentLogs(limitParam(r, 50))})
}

// limitParam reads the limit query parameter, falling back to def when the
// parameter is absent or not a positive integer.
func limitParam(r *http.Request, def int) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// Health is a liveness probe.
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

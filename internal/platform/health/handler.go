// Package health exposes liveness, readiness, and status probes.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pych2536/rpca70/pkg/platform/httputil"
)

// Version is set at build time via ldflags.
var Version = "dev"

// CheckFunc probes one dependency. It returns nil when the dependency is
// reachable.
type CheckFunc func(ctx context.Context) error

// Counter reports the number of records currently stored. It feeds the status
// probe; nil disables the record count.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Handler serves the probe endpoints.
type Handler struct {
	startTime time.Time
	counter   Counter

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// New creates a health handler. counter may be nil.
func New(counter Counter) *Handler {
	return &Handler{
		startTime: time.Now(),
		counter:   counter,
		checks:    make(map[string]CheckFunc),
	}
}

// RegisterCheck adds a named dependency check for the readiness probe.
func (h *Handler) RegisterCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Register mounts the probe routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleStatus)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

// HandleLiveness answers 200 whenever the process is running.
func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ReadinessResponse is the readiness probe payload.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleReadiness runs every registered dependency check and answers 503 if
// any fails.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	h.mu.RLock()
	checks := make(map[string]CheckFunc, len(h.checks))
	for name, check := range h.checks {
		checks[name] = check
	}
	h.mu.RUnlock()

	resp := ReadinessResponse{Status: "ready", Checks: make(map[string]string, len(checks))}
	status := http.StatusOK
	for name, check := range checks {
		if err := check(ctx); err != nil {
			resp.Checks[name] = "down: " + err.Error()
			resp.Status = "not_ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "up"
	}

	httputil.WriteJSON(w, status, resp)
}

// StatusResponse is the status probe payload.
type StatusResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Records       *int   `json:"records,omitempty"`
	Timestamp     string `json:"timestamp"`
}

// HandleStatus reports version, uptime, and the current dataset size.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:        "healthy",
		Version:       Version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
	if h.counter != nil {
		if n, err := h.counter.Count(r.Context()); err == nil {
			resp.Records = &n
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

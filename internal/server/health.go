// Package server provides the worker's health endpoints and graceful
// shutdown.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.temporal.io/sdk/client"
	"golang.org/x/sync/errgroup"

	"github.com/efebarandurmaz/archsift/internal/llm"
)

// Status is the health state of a component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Check is the result of one component probe.
type Check struct {
	Name    string            `json:"name"`
	Status  Status            `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// Report is the body returned by the health endpoints.
type Report struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
	Checks    []Check   `json:"checks,omitempty"`
}

// Checker probes one component.
type Checker func(ctx context.Context) Check

// CheckTimeout bounds a full /healthz probe.
const CheckTimeout = 5 * time.Second

// Health serves liveness, readiness and component health.
type Health struct {
	mu      sync.RWMutex
	checks  map[string]Checker
	version string
	ready   bool
}

// NewHealth creates a Health that is live but not yet ready.
func NewHealth(version string) *Health {
	return &Health{checks: make(map[string]Checker), version: version}
}

// Register adds a named component check.
func (h *Health) Register(name string, c Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = c
}

// SetReady marks whether the worker is accepting tasks.
func (h *Health) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

// Handler returns the health mux.
func (h *Health) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/readyz", h.handleReady)
	mux.HandleFunc("/livez", h.handleLive)
	return mux
}

// Run probes every registered component concurrently. Results are sorted
// by name. One unhealthy component makes the report unhealthy; a degraded
// one downgrades a healthy report.
func (h *Health) Run(ctx context.Context) Report {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	checkers := make([]Checker, len(names))
	sort.Strings(names)
	for i, name := range names {
		checkers[i] = h.checks[name]
	}
	version := h.version
	h.mu.RUnlock()

	results := make([]Check, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i := range checkers {
		g.Go(func() error {
			c := checkers[i](gctx)
			c.Name = names[i]
			results[i] = c
			return nil
		})
	}
	_ = g.Wait()

	report := Report{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
		Version:   version,
		Checks:    results,
	}
	for _, c := range results {
		switch {
		case c.Status == StatusUnhealthy:
			report.Status = StatusUnhealthy
		case c.Status == StatusDegraded && report.Status == StatusHealthy:
			report.Status = StatusDegraded
		}
	}
	return report
}

func (h *Health) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), CheckTimeout)
	defer cancel()

	report := h.Run(ctx)
	code := http.StatusOK
	if report.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, report)
}

func (h *Health) handleReady(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	ready := h.ready
	h.mu.RUnlock()
	probe(w, ready)
}

func (h *Health) handleLive(w http.ResponseWriter, _ *http.Request) {
	probe(w, true)
}

func probe(w http.ResponseWriter, ok bool) {
	report := Report{Status: StatusHealthy, Timestamp: time.Now().UTC()}
	code := http.StatusOK
	if !ok {
		report.Status = StatusUnhealthy
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// TemporalCheck probes the Temporal frontend.
func TemporalCheck(c client.Client) Checker {
	return func(ctx context.Context) Check {
		if _, err := c.CheckHealth(ctx, &client.CheckHealthRequest{}); err != nil {
			return Check{Status: StatusUnhealthy, Message: "temporal unreachable: " + err.Error()}
		}
		return Check{Status: StatusHealthy, Message: "temporal reachable"}
	}
}

// ReasoningServiceCheck reports the reasoning service the evaluator calls.
// A nil provider degrades health since every decision falls back. A
// rate-limited provider also reports its current window and degrades while
// its request budget is spent.
func ReasoningServiceCheck(p llm.Provider, model string) Checker {
	return func(context.Context) Check {
		if p == nil {
			return Check{Status: StatusDegraded, Message: "reasoning service disabled, deterministic evaluation only"}
		}
		c := Check{
			Status:  StatusHealthy,
			Message: "reasoning service configured",
			Details: map[string]string{"provider": p.Name(), "model": model},
		}
		limited, ok := p.(interface{ Stats() llm.RateLimitStats })
		if !ok {
			return c
		}
		st := limited.Stats()
		c.Details["requests_in_window"] = strconv.Itoa(st.RequestsInWindow)
		c.Details["tokens_in_window"] = strconv.Itoa(st.TokensInWindow)
		if st.RequestsLimited {
			c.Details["remaining_requests"] = strconv.Itoa(st.RemainingRequests)
			if st.RemainingRequests == 0 {
				c.Status = StatusDegraded
				c.Message = "request budget spent, judgments wait for the next window"
			}
		}
		return c
	}
}

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Hook priorities. Lower runs first.
const (
	PriorityHTTP    = 10
	PriorityWorker  = 20
	PriorityTracing = 80
)

// DefaultShutdownTimeout bounds the whole hook sequence.
const DefaultShutdownTimeout = 30 * time.Second

// Hook is a named shutdown step.
type Hook struct {
	Name     string
	Priority int
	Fn       func(ctx context.Context) error
}

// Shutdown runs registered hooks once, in priority order.
type Shutdown struct {
	mu      sync.Mutex
	hooks   []Hook
	timeout time.Duration
	logger  *slog.Logger
	once    sync.Once
	err     error
}

// NewShutdown creates a Shutdown. A non-positive timeout uses
// DefaultShutdownTimeout.
func NewShutdown(timeout time.Duration, logger *slog.Logger) *Shutdown {
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Shutdown{timeout: timeout, logger: logger}
}

// Register adds a hook. Hooks with equal priority run in registration order.
func (s *Shutdown) Register(name string, priority int, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, Hook{Name: name, Priority: priority, Fn: fn})
	sort.SliceStable(s.hooks, func(i, j int) bool { return s.hooks[i].Priority < s.hooks[j].Priority })
}

// Wait blocks until ctx is done, then runs the hooks.
func (s *Shutdown) Wait(ctx context.Context) error {
	<-ctx.Done()
	return s.Run()
}

// Run executes every hook under the shutdown timeout. A failing hook does
// not stop later ones. Later calls return the first result.
func (s *Shutdown) Run() error {
	s.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		s.mu.Lock()
		hooks := append([]Hook(nil), s.hooks...)
		s.mu.Unlock()

		var errs []error
		for _, h := range hooks {
			start := time.Now()
			if err := h.Fn(ctx); err != nil {
				s.logger.Error("shutdown hook failed", "hook", h.Name, "error", err)
				errs = append(errs, fmt.Errorf("%s: %w", h.Name, err))
				continue
			}
			s.logger.Debug("shutdown hook done", "hook", h.Name, "duration", time.Since(start))
		}
		s.err = errors.Join(errs...)
	})
	return s.err
}

// Serve starts the health endpoints on addr and registers their shutdown.
// It returns once the listener is bound.
func Serve(addr string, h *Health, s *Shutdown) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("health listener: %w", err)
	}
	srv := &http.Server{
		Handler:      h.Handler(),
		ReadTimeout:  CheckTimeout,
		WriteTimeout: 2 * CheckTimeout,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("health server stopped", "error", err)
		}
	}()

	s.Register("health-server", PriorityHTTP, func(ctx context.Context) error {
		h.SetReady(false)
		return srv.Shutdown(ctx)
	})
	return ln.Addr(), nil
}

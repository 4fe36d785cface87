package shutdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Hook is a named cleanup step.
type Hook struct {
	Name string
	Fn   func(context.Context) error
}

// Handler handles graceful shutdown.
type Handler struct {
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	hooks   []Hook
	trigger chan string
	once    sync.Once
	done    chan struct{}
}

// NewHandler creates a new shutdown handler. Hooks share a deadline of
// timeout once shutdown starts.
func NewHandler(timeout time.Duration, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		timeout: timeout,
		logger:  logger,
		trigger: make(chan string, 1),
		done:    make(chan struct{}),
	}
}

// OnShutdown registers a shutdown hook.
// Hooks are called in reverse order of registration.
func (h *Handler) OnShutdown(name string, fn func(context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, Hook{Name: name, Fn: fn})
}

// Trigger starts shutdown without a signal. Only the first reason is kept.
func (h *Handler) Trigger(reason string) {
	select {
	case h.trigger <- reason:
	default:
	}
}

// Wait blocks until a termination signal, Trigger or the end of ctx, then
// runs the hooks. It returns the joined hook errors.
func (h *Handler) Wait(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var reason string
	select {
	case sig := <-sigCh:
		reason = "signal " + sig.String()
	case reason = <-h.trigger:
	case <-ctx.Done():
		reason = "context done"
	}

	return h.Run(reason)
}

// Run executes the hooks once. Later calls return nil immediately.
func (h *Handler) Run(reason string) error {
	var err error
	h.once.Do(func() {
		defer close(h.done)
		err = h.run(reason)
	})
	return err
}

func (h *Handler) run(reason string) error {
	h.logger.Info("shutting down", "reason", reason, "timeout", h.timeout)

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	h.mu.Lock()
	hooks := make([]Hook, len(h.hooks))
	copy(hooks, h.hooks)
	h.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		start := time.Now()
		if err := hook.Fn(ctx); err != nil {
			h.logger.Error("shutdown hook failed", "hook", hook.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", hook.Name, err))
			continue
		}
		h.logger.Debug("shutdown hook done", "hook", hook.Name, "elapsed", time.Since(start))
	}

	if len(errs) == 0 {
		h.logger.Info("shutdown complete")
	}
	return errors.Join(errs...)
}

// Done returns a channel that closes when shutdown is complete.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}

// Package switchboard owns the single source of truth for which backend
// model is currently loaded, and serializes all model switches.
//
// Exactly one model process may occupy accelerator memory at a time. Every
// switch therefore runs under one exclusive lock spanning the whole
// stop-all/start-target/poll-health sequence, so concurrent requests queue
// behind an in-flight switch instead of racing it.
package switchboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"gpuswitch/relay/pkg/systemd"
)

var (
	// ErrUnknownModel is returned when the requested model is not in the
	// registry. No process-control command is issued in this case.
	ErrUnknownModel = errors.New("model not found in registry")

	// ErrActivationTimeout is returned when the backend never reported
	// healthy within the poll budget.
	ErrActivationTimeout = errors.New("model did not become ready in time")
)

// HealthChecker probes the backend for readiness. A nil error means the
// backend answered its health endpoint with success.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Observer receives switch outcomes, typically for metrics.
type Observer interface {
	ObserveSwitch(model, result string, elapsed time.Duration)
	SetActiveModel(model string)
}

// Switchboard serializes model switches against a fixed model registry.
type Switchboard struct {
	registry map[string]string // model id -> service unit
	ctl      systemd.Controller
	health   HealthChecker
	logger   *slog.Logger

	pollInterval time.Duration
	pollAttempts int
	sleep        func(time.Duration)
	observer     Observer

	mu sync.Mutex
	// active caches the model confirmed ready by the most recent switch or
	// status probe. It is a cache of external process state, never trusted
	// past the fast path without re-verification on a miss.
	active string
}

// Option configures a Switchboard.
type Option func(*Switchboard)

// WithPollInterval sets the delay between health poll attempts.
func WithPollInterval(d time.Duration) Option {
	return func(s *Switchboard) { s.pollInterval = d }
}

// WithPollAttempts bounds the number of health poll attempts per switch.
func WithPollAttempts(n int) Option {
	return func(s *Switchboard) { s.pollAttempts = n }
}

// WithSleep substitutes the inter-poll sleep (used by tests).
func WithSleep(fn func(time.Duration)) Option {
	return func(s *Switchboard) { s.sleep = fn }
}

// WithObserver registers a switch outcome observer.
func WithObserver(o Observer) Option {
	return func(s *Switchboard) { s.observer = o }
}

// New creates a Switchboard over the given model-to-unit registry.
// The registry is copied and immutable for the Switchboard's lifetime.
func New(registry map[string]string, ctl systemd.Controller, health HealthChecker, opts ...Option) *Switchboard {
	reg := make(map[string]string, len(registry))
	for model, unit := range registry {
		reg[model] = unit
	}

	s := &Switchboard{
		registry:     reg,
		ctl:          ctl,
		health:       health,
		logger:       slog.Default().With("component", "switchboard"),
		pollInterval: time.Second,
		pollAttempts: 120,
		sleep:        time.Sleep,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Models returns the registered model identifiers in sorted order.
func (s *Switchboard) Models() []string {
	models := make([]string, 0, len(s.registry))
	for model := range s.registry {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}

// Knows reports whether the model exists in the registry.
func (s *Switchboard) Knows(model string) bool {
	_, ok := s.registry[model]
	return ok
}

// ActiveModel returns the currently cached active model, or "" if none has
// been confirmed.
func (s *Switchboard) ActiveModel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// EnsureActive blocks until the requested model's service is confirmed ready,
// switching services if necessary. It is safe to call concurrently; callers
// targeting any model queue behind an in-flight switch.
//
// It never panics and leaves the active-model cache set only for models the
// backend actually confirmed, so a failed switch is retried in full on the
// next call.
func (s *Switchboard) EnsureActive(ctx context.Context, model string) error {
	unit, ok := s.registry[model]
	if !ok {
		s.logger.Error("requested model not configured", "model", model)
		return fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}

	// A switch is shared state, not request-scoped: once begun it runs to
	// completion even if the originating client disconnects, since every
	// queued caller depends on its outcome.
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Fast path: the previous switch already confirmed this model.
	if s.active == model {
		return nil
	}

	// Re-verify against the real process state. The service may have been
	// started out-of-band or survived a restart of this proxy.
	if s.ctl.Status(ctx, unit) == systemd.StatusActive {
		s.setActive(model)
		return nil
	}

	start := time.Now()
	s.logger.Info("switching model", "model", model, "unit", unit)

	// Free the accelerator: stop every other registered unit. Individual
	// stop failures are logged and switching continues.
	for other, otherUnit := range s.registry {
		if other == model {
			continue
		}
		if err := s.ctl.Stop(ctx, otherUnit); err != nil {
			s.logger.Warn("failed to stop service", "model", other, "unit", otherUnit, "error", err)
		}
	}
	// The target's own unit is stopped too, so a wedged instance restarts
	// cleanly instead of being reused.
	if err := s.ctl.Stop(ctx, unit); err != nil {
		s.logger.Warn("failed to stop target service", "unit", unit, "error", err)
	}

	if err := s.ctl.Start(ctx, unit); err != nil {
		s.logger.Warn("failed to start service", "unit", unit, "error", err)
	}

	if err := s.waitReady(ctx, model); err != nil {
		s.setActive("")
		s.observe(model, "timeout", time.Since(start))
		return err
	}

	s.setActive(model)
	s.observe(model, "success", time.Since(start))
	s.logger.Info("model ready", "model", model, "elapsed", time.Since(start).String())
	return nil
}

// waitReady polls the backend health endpoint until it answers or the poll
// budget is exhausted. Probe errors count as "not yet ready".
func (s *Switchboard) waitReady(ctx context.Context, model string) error {
	for attempt := 0; attempt < s.pollAttempts; attempt++ {
		if err := s.health.Health(ctx); err == nil {
			return nil
		}

		if attempt%5 == 0 {
			s.logger.Info("waiting for model to start", "model", model, "attempt", attempt+1)
		}
		s.sleep(s.pollInterval)
	}

	s.logger.Error("model did not start in time", "model", model, "attempts", s.pollAttempts)
	return fmt.Errorf("%w: %s", ErrActivationTimeout, model)
}

// setActive updates the cache and the observer's active-model gauge.
// Callers hold s.mu.
func (s *Switchboard) setActive(model string) {
	s.active = model
	if s.observer != nil {
		s.observer.SetActiveModel(model)
	}
}

func (s *Switchboard) observe(model, result string, elapsed time.Duration) {
	if s.observer != nil {
		s.observer.ObserveSwitch(model, result, elapsed)
	}
}

// Package systemd provides process control for backend model services
// through the host's user-level service manager.
package systemd

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Status is the observed state of a managed service unit.
type Status int

const (
	// StatusUnknown means the state could not be confirmed (command failure,
	// timeout, or unrecognized output). Callers must treat this as "not
	// confirmed active".
	StatusUnknown Status = iota

	// StatusActive means the unit reported itself as active.
	StatusActive

	// StatusInactive means the unit reported itself as not active.
	StatusInactive
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// Controller issues start/stop/status commands against named service units.
// Implementations must never return a status they cannot confirm.
type Controller interface {
	Start(ctx context.Context, unit string) error
	Stop(ctx context.Context, unit string) error
	Status(ctx context.Context, unit string) Status
}

// Runner executes a command and returns its combined standard output.
// It exists so tests can substitute a fake for the real systemctl binary.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	return string(out), err
}

// UserController controls units via `systemctl --user`.
type UserController struct {
	systemctl string
	timeout   time.Duration
	runner    Runner
	logger    *slog.Logger
}

// Option configures a UserController.
type Option func(*UserController)

// WithRunner substitutes the command runner (used by tests).
func WithRunner(r Runner) Option {
	return func(c *UserController) { c.runner = r }
}

// WithCommandTimeout bounds the duration of each systemctl invocation.
func WithCommandTimeout(d time.Duration) Option {
	return func(c *UserController) { c.timeout = d }
}

// NewUserController creates a controller that shells out to the given
// systemctl binary. If systemctlPath is empty, /usr/bin/systemctl is used.
func NewUserController(systemctlPath string, opts ...Option) *UserController {
	if systemctlPath == "" {
		systemctlPath = "/usr/bin/systemctl"
	}

	c := &UserController{
		systemctl: systemctlPath,
		timeout:   10 * time.Second,
		runner:    execRunner{},
		logger:    slog.Default().With("component", "systemd"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Start issues `systemctl --user start <unit>`.
func (c *UserController) Start(ctx context.Context, unit string) error {
	_, err := c.run(ctx, "start", unit)
	if err != nil {
		c.logger.Warn("start command failed", "unit", unit, "error", err)
	}
	return err
}

// Stop issues `systemctl --user stop <unit>`. Stopping an already-stopped
// unit is not an error at this layer; the caller decides what failures mean.
func (c *UserController) Stop(ctx context.Context, unit string) error {
	_, err := c.run(ctx, "stop", unit)
	if err != nil {
		c.logger.Warn("stop command failed", "unit", unit, "error", err)
	}
	return err
}

// Status issues `systemctl --user is-active <unit>` and maps the output to a
// Status. is-active exits non-zero for inactive units, so the exit code alone
// cannot distinguish "inactive" from "command failed"; only the literal
// stdout values are trusted.
func (c *UserController) Status(ctx context.Context, unit string) Status {
	out, err := c.run(ctx, "is-active", unit)

	switch strings.TrimSpace(out) {
	case "active":
		return StatusActive
	case "inactive", "failed", "deactivating":
		return StatusInactive
	}

	if err != nil {
		c.logger.Warn("is-active command failed", "unit", unit, "error", err)
	}
	return StatusUnknown
}

// run executes a single bounded systemctl invocation.
func (c *UserController) run(ctx context.Context, action, unit string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.runner.Run(runCtx, c.systemctl, "--user", action, unit)
}

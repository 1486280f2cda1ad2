package config

import (
	"fmt"
	"net/url"
	"strings"
)

// FieldError is a validation error for one configuration field.
type FieldError struct {
	// Field is the dotted path to the field (e.g. "backend.base_url").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error implements the error interface.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError aggregates every validation failure in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate checks the configuration and returns a ValidationError collecting
// every failed rule, or nil when the configuration is valid.
func Validate(cfg *Config) error {
	var errs []FieldError

	if cfg.Server.ListenAddress == "" {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: "must not be empty"})
	}

	if u, err := url.Parse(cfg.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, FieldError{
			Field:   "backend.base_url",
			Message: fmt.Sprintf("must be an absolute URL, got %q", cfg.Backend.BaseURL),
		})
	}

	if len(cfg.Models) == 0 {
		errs = append(errs, FieldError{Field: "models", Message: "at least one model must be configured"})
	}
	for model, unit := range cfg.Models {
		if strings.TrimSpace(unit) == "" {
			errs = append(errs, FieldError{
				Field:   "models." + model,
				Message: "service unit name must not be empty",
			})
		}
	}

	if cfg.Switch.PollAttempts < 1 {
		errs = append(errs, FieldError{Field: "switch.poll_attempts", Message: "must be at least 1"})
	}
	if cfg.Switch.PollInterval <= 0 {
		errs = append(errs, FieldError{Field: "switch.poll_interval", Message: "must be positive"})
	}

	switch cfg.Trace.Backend {
	case "", "file", "sqlite":
	default:
		errs = append(errs, FieldError{
			Field:   "trace.backend",
			Message: fmt.Sprintf("must be \"file\", \"sqlite\" or empty, got %q", cfg.Trace.Backend),
		})
	}
	if cfg.Trace.Backend != "" && cfg.Trace.Path == "" {
		errs = append(errs, FieldError{Field: "trace.path", Message: "required when trace backend is set"})
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("must be debug, info, warn or error, got %q", cfg.Telemetry.Logging.Level),
		})
	}

	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("must be json or text, got %q", cfg.Telemetry.Logging.Format),
		})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

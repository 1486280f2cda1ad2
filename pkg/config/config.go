// Package config loads and validates the Relay configuration.
package config

import "time"

// Config is the root configuration structure for Relay.
type Config struct {
	// Server contains HTTP listener settings.
	Server ServerConfig `yaml:"server"`

	// Backend describes the single upstream inference server.
	Backend BackendConfig `yaml:"backend"`

	// Switch controls the model-switching state machine.
	Switch SwitchConfig `yaml:"switch"`

	// Models maps model identifiers to backend service unit names.
	// Loaded once at startup and immutable for the process lifetime.
	Models map[string]string `yaml:"models"`

	// Memory configures the persistent free-text memory artifact.
	Memory MemoryConfig `yaml:"memory"`

	// Trace configures the request/response trace side channel.
	Trace TraceConfig `yaml:"trace"`

	// Telemetry contains logging and metrics settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the proxy's HTTP listener.
type ServerConfig struct {
	// ListenAddress is "host:port" the proxy listens on.
	// Default: "127.0.0.1:8081"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading an entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// IdleTimeout is the keep-alive idle ceiling.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// BackendConfig describes the llama.cpp-style upstream.
type BackendConfig struct {
	// BaseURL is the backend root, e.g. "http://127.0.0.1:8080".
	BaseURL string `yaml:"base_url"`

	// RequestTimeout is the ceiling on a completion call. Generation on
	// large models is slow, so this is deliberately generous.
	// Default: 30m
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// HealthTimeout bounds a single health probe.
	// Default: 1s
	HealthTimeout time.Duration `yaml:"health_timeout"`
}

// SwitchConfig controls model switching.
type SwitchConfig struct {
	// SystemctlPath is the service-manager binary.
	// Default: /usr/bin/systemctl
	SystemctlPath string `yaml:"systemctl_path"`

	// CommandTimeout bounds each systemctl invocation.
	// Default: 10s
	CommandTimeout time.Duration `yaml:"command_timeout"`

	// PollInterval is the delay between health probes during a switch.
	// Default: 1s
	PollInterval time.Duration `yaml:"poll_interval"`

	// PollAttempts bounds the number of health probes per switch.
	// Default: 120
	PollAttempts int `yaml:"poll_attempts"`
}

// MemoryConfig configures persistent memory. An empty path disables the
// memory augmenter entirely.
type MemoryConfig struct {
	// Path is the memory artifact file.
	Path string `yaml:"path"`
}

// TraceConfig configures the trace side channel.
type TraceConfig struct {
	// Backend selects the recorder: "", "file" or "sqlite".
	// Empty disables tracing.
	Backend string `yaml:"backend"`

	// Path is the trace file (backend "file") or database (backend
	// "sqlite") location.
	Path string `yaml:"path"`

	// Retention applies to the sqlite backend.
	Retention RetentionConfig `yaml:"retention"`
}

// RetentionConfig controls pruning of stored traces.
type RetentionConfig struct {
	// Days is the record age limit. Default: 30.
	Days int `yaml:"days"`

	// MaxRecords caps total records. 0 disables the cap.
	MaxRecords int64 `yaml:"max_records"`

	// PruneSchedule is a cron expression; empty disables scheduled pruning.
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig contains observability settings.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error". Default: "info".
	Level string `yaml:"level"`

	// Format is "json" or "text". Default: "json".
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled turns the /metrics endpoint on. Default: true.
	Enabled bool `yaml:"enabled"`

	// Path is the metrics endpoint path. Default: "/metrics".
	Path string `yaml:"path"`

	// Namespace prefixes every metric name. Default: "relay".
	Namespace string `yaml:"namespace"`
}

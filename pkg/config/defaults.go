package config

import "time"

// Default values for configuration fields.
const (
	DefaultListenAddress   = "127.0.0.1:8081"
	DefaultReadTimeout     = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	DefaultBackendBaseURL        = "http://127.0.0.1:8080"
	DefaultBackendRequestTimeout = 30 * time.Minute
	DefaultBackendHealthTimeout  = time.Second

	DefaultSystemctlPath  = "/usr/bin/systemctl"
	DefaultCommandTimeout = 10 * time.Second
	DefaultPollInterval   = time.Second
	DefaultPollAttempts   = 120

	DefaultTraceRetentionDays = 30

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "relay"
)

// ApplyDefaults fills zero-valued fields with defaults. It never overrides a
// value the user set explicitly.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = DefaultBackendBaseURL
	}
	if cfg.Backend.RequestTimeout == 0 {
		cfg.Backend.RequestTimeout = DefaultBackendRequestTimeout
	}
	if cfg.Backend.HealthTimeout == 0 {
		cfg.Backend.HealthTimeout = DefaultBackendHealthTimeout
	}

	if cfg.Switch.SystemctlPath == "" {
		cfg.Switch.SystemctlPath = DefaultSystemctlPath
	}
	if cfg.Switch.CommandTimeout == 0 {
		cfg.Switch.CommandTimeout = DefaultCommandTimeout
	}
	if cfg.Switch.PollInterval == 0 {
		cfg.Switch.PollInterval = DefaultPollInterval
	}
	if cfg.Switch.PollAttempts == 0 {
		cfg.Switch.PollAttempts = DefaultPollAttempts
	}

	if cfg.Trace.Retention.Days == 0 {
		cfg.Trace.Retention.Days = DefaultTraceRetentionDays
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}

	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
}

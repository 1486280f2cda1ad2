package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `
server:
  listen_address: "0.0.0.0:9000"
backend:
  base_url: "http://127.0.0.1:8080"
models:
  qwen-32b: llama-qwen.service
  mistral-7b: llama-mistral.service
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9000" {
		t.Errorf("ListenAddress = %q, want 0.0.0.0:9000", cfg.Server.ListenAddress)
	}
	if cfg.Models["qwen-32b"] != "llama-qwen.service" {
		t.Errorf("Models[qwen-32b] = %q, want llama-qwen.service", cfg.Models["qwen-32b"])
	}

	// Defaults fill the rest.
	if cfg.Switch.PollAttempts != DefaultPollAttempts {
		t.Errorf("PollAttempts = %d, want default %d", cfg.Switch.PollAttempts, DefaultPollAttempts)
	}
	if cfg.Switch.PollInterval != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want default %v", cfg.Switch.PollInterval, DefaultPollInterval)
	}
	if cfg.Backend.RequestTimeout != 30*time.Minute {
		t.Errorf("RequestTimeout = %v, want 30m", cfg.Backend.RequestTimeout)
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want default true")
	}
	if cfg.Telemetry.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() error = nil for missing file, want error")
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		broken string // substring expected in error
	}{
		{
			name:   "no models",
			yaml:   "backend:\n  base_url: http://localhost:8080\n",
			broken: "models",
		},
		{
			name:   "bad backend url",
			yaml:   "backend:\n  base_url: \"not a url\"\nmodels:\n  m: u.service\n",
			broken: "backend.base_url",
		},
		{
			name:   "empty unit name",
			yaml:   "backend:\n  base_url: http://localhost:8080\nmodels:\n  m: \"\"\n",
			broken: "models.m",
		},
		{
			name:   "bad trace backend",
			yaml:   validYAML + "trace:\n  backend: kafka\n  path: t.log\n",
			broken: "trace.backend",
		},
		{
			name:   "trace backend without path",
			yaml:   validYAML + "trace:\n  backend: file\n",
			broken: "trace.path",
		},
		{
			name:   "bad log level",
			yaml:   validYAML + "telemetry:\n  logging:\n    level: loud\n",
			broken: "telemetry.logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			if err == nil {
				t.Fatal("Load() error = nil, want validation error")
			}
			if got := err.Error(); !strings.Contains(got, tt.broken) {
				t.Errorf("error %q does not mention %q", got, tt.broken)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RELAY_SERVER_LISTEN_ADDRESS", "127.0.0.1:7777")
	t.Setenv("RELAY_SWITCH_POLL_ATTEMPTS", "5")
	t.Setenv("RELAY_BACKEND_REQUEST_TIMEOUT", "5m")
	t.Setenv("RELAY_TELEMETRY_METRICS_ENABLED", "false")

	cfg, err := LoadWithEnvOverrides(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadWithEnvOverrides() error = %v", err)
	}

	if cfg.Server.ListenAddress != "127.0.0.1:7777" {
		t.Errorf("ListenAddress = %q, want env override", cfg.Server.ListenAddress)
	}
	if cfg.Switch.PollAttempts != 5 {
		t.Errorf("PollAttempts = %d, want 5", cfg.Switch.PollAttempts)
	}
	if cfg.Backend.RequestTimeout != 5*time.Minute {
		t.Errorf("RequestTimeout = %v, want 5m", cfg.Backend.RequestTimeout)
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want env override false")
	}
}

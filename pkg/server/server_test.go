package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"gpuswitch/relay/pkg/config"
)

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	})
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Models = map[string]string{"m": "m.service"}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestRoutes(t *testing.T) {
	srv := New(testConfig(), Handlers{
		Chat:    okHandler("chat"),
		Models:  okHandler("models"),
		Health:  okHandler("health"),
		Metrics: okHandler("metrics"),
	})
	handler := srv.Handler()

	tests := []struct {
		path string
		want string
	}{
		{"/v1/chat/completions", "chat"},
		{"/v1/models", "models"},
		{"/health", "health"},
		{"/metrics", "metrics"},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", tt.path, rec.Code)
		}
		if got := rec.Body.String(); got != tt.want {
			t.Errorf("%s: body = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestMetricsRouteOmittedWhenDisabled(t *testing.T) {
	srv := New(testConfig(), Handlers{
		Chat:   okHandler("chat"),
		Models: okHandler("models"),
		Health: okHandler("health"),
	})
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 with metrics disabled", rec.Code)
	}
}

func TestMiddlewareApplied(t *testing.T) {
	srv := New(testConfig(), Handlers{
		Chat:   okHandler("chat"),
		Models: okHandler("models"),
		Health: okHandler("health"),
	})
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("request ID middleware not applied")
	}
}

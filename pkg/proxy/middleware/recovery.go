package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"gpuswitch/relay/pkg/proxy/types"
)

// Recovery recovers from panics in HTTP handlers and returns a 500 response
// in the proxy's flat error format. The panic is logged with a stack trace;
// internal details are not exposed to clients.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				requestID := GetRequestID(r.Context())
				stack := debug.Stack()

				slog.ErrorContext(r.Context(), "panic in handler",
					"error", err,
					"request_id", requestID,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(stack),
				)

				types.WriteError(w, http.StatusInternalServerError, types.MsgInternalError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

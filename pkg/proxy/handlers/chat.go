// Package handlers implements the HTTP endpoints of the proxy.
package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"gpuswitch/relay/pkg/memory"
	"gpuswitch/relay/pkg/proxy/middleware"
	"gpuswitch/relay/pkg/proxy/types"
	"gpuswitch/relay/pkg/rewrite"
	"gpuswitch/relay/pkg/trace"
)

// ModelSwitcher brings the requested model up before a request is forwarded.
type ModelSwitcher interface {
	EnsureActive(ctx context.Context, model string) error
	Models() []string
	ActiveModel() string
}

// Backend forwards a completed request body to the inference server.
type Backend interface {
	ChatCompletions(ctx context.Context, body []byte) ([]byte, int, error)
}

// RequestObserver records per-request metrics.
type RequestObserver interface {
	RecordRequest(model, status string, elapsed time.Duration)
}

// ChatHandler serves POST /v1/chat/completions.
//
// The pipeline for each request:
//
//	read body -> memory augment -> ensure model active -> forward (stream off)
//	-> normalize tool calls -> intercept save_memory -> frame or relay -> trace
type ChatHandler struct {
	switcher  ModelSwitcher
	backend   Backend
	rewriter  *rewrite.Rewriter
	augmenter *memory.Augmenter
	recorder  trace.Recorder
	observer  RequestObserver
	logger    *slog.Logger
}

// NewChatHandler wires the chat completion pipeline. The augmenter and
// observer may be nil; the recorder must not be (use trace.Nop).
func NewChatHandler(
	switcher ModelSwitcher,
	backend Backend,
	rewriter *rewrite.Rewriter,
	augmenter *memory.Augmenter,
	recorder trace.Recorder,
	observer RequestObserver,
	logger *slog.Logger,
) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{
		switcher:  switcher,
		backend:   backend,
		rewriter:  rewriter,
		augmenter: augmenter,
		recorder:  recorder,
		observer:  observer,
		logger:    logger,
	}
}

// ServeHTTP implements http.Handler.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		types.WriteError(w, http.StatusMethodNotAllowed, types.MsgMethodNotAllowed)
		return
	}

	start := time.Now()
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	rawInput, err := io.ReadAll(r.Body)
	if err != nil || len(rawInput) == 0 {
		types.WriteError(w, http.StatusBadRequest, types.MsgNoData)
		return
	}
	if !gjson.ValidBytes(rawInput) {
		types.WriteError(w, http.StatusBadRequest, types.MsgInvalidJSON)
		return
	}

	model := gjson.GetBytes(rawInput, "model").String()
	wantStream := gjson.GetBytes(rawInput, "stream").Bool()

	outcome := "error"
	defer func() {
		if h.observer != nil {
			h.observer.RecordRequest(model, outcome, time.Since(start))
		}
	}()

	body := rawInput
	if h.augmenter != nil {
		body = h.augmenter.AugmentRequest(body)
	}

	// The backend is always asked for a complete response; streaming is
	// reconstructed for the client afterwards.
	if out, err := sjson.SetBytes(body, "stream", false); err == nil {
		body = out
	}

	if err := h.switcher.EnsureActive(ctx, model); err != nil {
		h.logger.ErrorContext(ctx, "model activation failed",
			"model", model,
			"request_id", requestID,
			"error", err,
		)
		types.WriteError(w, http.StatusInternalServerError, types.ActivationFailedMessage(model))
		return
	}

	backendBody, status, err := h.backend.ChatCompletions(ctx, body)
	if err != nil {
		h.logger.ErrorContext(ctx, "backend request failed",
			"model", model,
			"request_id", requestID,
			"error", err,
		)
		types.WriteError(w, http.StatusInternalServerError, types.MsgBackendUnreachable)
		return
	}

	// Non-JSON bodies and backend errors are relayed untouched so clients
	// see exactly what the inference server said.
	if status < 200 || status >= 300 || !gjson.ValidBytes(backendBody) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(backendBody)
		return
	}

	final := h.rewriter.Normalize(backendBody)
	if h.augmenter != nil {
		h.augmenter.InterceptResponse(final)
	}

	if wantStream {
		h.writeStream(w, final)
	} else {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(final)
	}
	outcome = "success"

	h.recorder.Record(ctx, &trace.Record{
		Timestamp:        start,
		RequestID:        requestID,
		Model:            model,
		RawInput:         rawInput,
		RawBackendOutput: backendBody,
		FinalOutput:      final,
	})
}

// writeStream replays a complete response as server-sent events: one chunk
// carrying the whole message, then the DONE sentinel.
func (h *ChatHandler) writeStream(w http.ResponseWriter, final []byte) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	for _, frame := range rewrite.Frames(final) {
		_, _ = w.Write(frame)
		if flusher != nil {
			flusher.Flush()
		}
	}
}

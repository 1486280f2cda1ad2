// Package trace is the append-only side channel recording raw request,
// raw backend output, and final output for offline debugging.
//
// Nothing in this package may affect the request path: recorders swallow and
// log their own failures.
package trace

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Record is one request's trace: the bytes exactly as received and produced,
// regardless of any JSON repair applied in between.
type Record struct {
	Timestamp        time.Time
	RequestID        string
	Model            string
	RawInput         []byte
	RawBackendOutput []byte
	FinalOutput      []byte
}

// Recorder persists trace records. Implementations never return errors to
// the caller; a failed trace write is logged and dropped.
type Recorder interface {
	Record(ctx context.Context, rec *Record)
}

// Nop is the recorder used when tracing is not configured.
type Nop struct{}

// Record implements Recorder as a no-op.
func (Nop) Record(ctx context.Context, rec *Record) {}

// FileRecorder appends human-readable delimited blocks to a text file.
type FileRecorder struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewFileRecorder creates a recorder appending to the file at path.
func NewFileRecorder(path string) *FileRecorder {
	return &FileRecorder{
		path:   path,
		logger: slog.Default().With("component", "trace"),
	}
}

// Record implements Recorder with open-append-close semantics. The block is
// written with a single call so concurrent records interleave at block
// granularity under low concurrency.
func (r *FileRecorder) Record(ctx context.Context, rec *Record) {
	block := formatBlock(rec)

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		r.logger.Warn("failed to open trace file", "path", r.path, "error", err)
		return
	}
	defer f.Close()

	if _, err := f.WriteString(block); err != nil {
		r.logger.Warn("failed to append trace record", "path", r.path, "error", err)
	}
}

// formatBlock renders one delimited trace block. Payload bytes are embedded
// verbatim, including incidental whitespace.
func formatBlock(rec *Record) string {
	var b strings.Builder

	fmt.Fprintf(&b, "=== trace %s request_id=%s model=%s\n",
		rec.Timestamp.UTC().Format(time.RFC3339Nano), rec.RequestID, rec.Model)
	b.WriteString("--- request\n")
	b.Write(rec.RawInput)
	b.WriteString("\n--- backend\n")
	b.Write(rec.RawBackendOutput)
	b.WriteString("\n--- final\n")
	b.Write(rec.FinalOutput)
	b.WriteString("\n=== end\n")

	return b.String()
}

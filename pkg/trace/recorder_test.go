package trace

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFileRecorderPreservesBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.log")
	rec := NewFileRecorder(path)

	// Incidental whitespace in the original bytes must survive.
	rawInput := []byte("{\n  \"model\": \"qwen-32b\" ,  \"messages\": [] }")
	rawBackend := []byte(`{"choices": [{"message": {"content":"hi"}}]}`)
	final := []byte(`{"choices":[{"message":{"content":"hi"}}]}`)

	rec.Record(context.Background(), &Record{
		Timestamp:        time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC),
		RequestID:        "req-1",
		Model:            "qwen-32b",
		RawInput:         rawInput,
		RawBackendOutput: rawBackend,
		FinalOutput:      final,
	})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	got := string(data)

	for _, payload := range []string{string(rawInput), string(rawBackend), string(final)} {
		if !strings.Contains(got, payload) {
			t.Errorf("trace file missing verbatim payload %q", payload)
		}
	}
	if !strings.Contains(got, "request_id=req-1") {
		t.Errorf("trace file missing request id: %q", got)
	}
	if !strings.Contains(got, "model=qwen-32b") {
		t.Errorf("trace file missing model: %q", got)
	}
}

func TestFileRecorderAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.log")
	rec := NewFileRecorder(path)

	for i := 0; i < 3; i++ {
		rec.Record(context.Background(), &Record{
			Timestamp: time.Now(),
			RequestID: "req",
			Model:     "m",
		})
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if n := strings.Count(string(data), "=== trace"); n != 3 {
		t.Errorf("trace file has %d blocks, want 3", n)
	}
}

func TestFileRecorderUnwritablePathIsSilent(t *testing.T) {
	rec := NewFileRecorder(filepath.Join(t.TempDir(), "missing", "dir", "traces.log"))

	// Must not panic or error; failures stay inside the recorder.
	rec.Record(context.Background(), &Record{Timestamp: time.Now()})
}

func TestNopRecorder(t *testing.T) {
	var r Recorder = Nop{}
	r.Record(context.Background(), &Record{Timestamp: time.Now()})
}

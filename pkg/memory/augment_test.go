package memory

import (
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"gpuswitch/relay/pkg/rewrite"
)

func newTestAugmenter(t *testing.T) (*Augmenter, *Store) {
	t.Helper()
	store, _ := newTestStore(t)
	return NewAugmenter(store, rewrite.JSONRepairer{}), store
}

func TestAugmentRequestInjectsMemory(t *testing.T) {
	aug, store := newTestAugmenter(t)
	if err := store.Append("GPU has 8GB VRAM"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	tests := []struct {
		name       string
		request    string
		systemPath string
	}{
		{
			name:       "existing system message is extended",
			request:    `{"model":"m","messages":[{"role":"system","content":"You are helpful."},{"role":"user","content":"hi"}]}`,
			systemPath: "messages.0",
		},
		{
			name:       "system message is prepended when absent",
			request:    `{"model":"m","messages":[{"role":"user","content":"hi"}]}`,
			systemPath: "messages.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := aug.AugmentRequest([]byte(tt.request))

			sys := gjson.GetBytes(out, tt.systemPath)
			if sys.Get("role").String() != "system" {
				t.Fatalf("first message role = %q, want system", sys.Get("role").String())
			}

			content := sys.Get("content").String()
			if !strings.Contains(content, "GPU has 8GB VRAM") {
				t.Errorf("system content missing fact: %q", content)
			}
			if !strings.Contains(content, "save_memory") {
				t.Errorf("system content missing tool instruction: %q", content)
			}

			// The user message survives in order.
			last := gjson.GetBytes(out, "messages").Array()
			if got := last[len(last)-1].Get("content").String(); got != "hi" {
				t.Errorf("trailing user message = %q, want %q", got, "hi")
			}
		})
	}
}

func TestAugmentRequestKeepsExistingSystemText(t *testing.T) {
	aug, store := newTestAugmenter(t)
	if err := store.Append("some fact"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	request := `{"messages":[{"role":"system","content":"Original instructions."}]}`
	out := aug.AugmentRequest([]byte(request))

	content := gjson.GetBytes(out, "messages.0.content").String()
	if !strings.HasPrefix(content, "Original instructions.") {
		t.Errorf("original system text not preserved: %q", content)
	}
}

func TestAugmentRequestEmptyMemorySkipsBlock(t *testing.T) {
	aug, _ := newTestAugmenter(t)

	request := `{"messages":[{"role":"user","content":"hi"}]}`
	out := aug.AugmentRequest([]byte(request))

	if got := gjson.GetBytes(out, "messages.0.role").String(); got != "user" {
		t.Errorf("memory block injected despite empty memory, first role = %q", got)
	}

	// The tool definition is still offered so the model can start saving.
	if got := gjson.GetBytes(out, "tools.0.function.name").String(); got != ToolName {
		t.Errorf("tools.0.function.name = %q, want %q", got, ToolName)
	}
}

func TestEnsureToolIdempotent(t *testing.T) {
	aug, _ := newTestAugmenter(t)

	request := `{"messages":[],"tools":[{"type":"function","function":{"name":"get_weather","parameters":{}}}]}`

	out := aug.AugmentRequest([]byte(request))
	out = aug.AugmentRequest(out) // second pass must not duplicate

	var saveCount int
	for _, tool := range gjson.GetBytes(out, "tools").Array() {
		if tool.Get("function.name").String() == ToolName {
			saveCount++
		}
	}
	if saveCount != 1 {
		t.Errorf("save_memory defined %d times, want 1", saveCount)
	}

	// Pre-existing tools are untouched.
	if got := gjson.GetBytes(out, "tools.0.function.name").String(); got != "get_weather" {
		t.Errorf("tools.0.function.name = %q, want get_weather", got)
	}
}

func TestInterceptResponsePersistsFact(t *testing.T) {
	aug, store := newTestAugmenter(t)

	resp := `{"choices":[{"message":{"role":"assistant","content":null,"tool_calls":[` +
		`{"id":"call_1","type":"function","function":{"name":"save_memory","arguments":"{\"fact\": \"GPU has 8GB VRAM\"}"}}]}}]}`

	aug.InterceptResponse([]byte(resp))

	facts, err := store.Facts()
	if err != nil {
		t.Fatalf("Facts() error = %v", err)
	}
	if len(facts) != 1 || facts[0] != "GPU has 8GB VRAM" {
		t.Errorf("Facts() = %v, want the saved fact", facts)
	}
}

func TestInterceptResponseRepairsArguments(t *testing.T) {
	aug, store := newTestAugmenter(t)

	resp := `{"choices":[{"message":{"role":"assistant","tool_calls":[` +
		`{"function":{"name":"save_memory","arguments":"{\"fact\": \"needs repair\", }"}}]}}]}`

	aug.InterceptResponse([]byte(resp))

	facts, err := store.Facts()
	if err != nil {
		t.Fatalf("Facts() error = %v", err)
	}
	if len(facts) != 1 || facts[0] != "needs repair" {
		t.Errorf("Facts() = %v, want repaired fact", facts)
	}
}

func TestInterceptResponseIgnoresOtherTools(t *testing.T) {
	aug, store := newTestAugmenter(t)

	resp := `{"choices":[{"message":{"role":"assistant","tool_calls":[` +
		`{"function":{"name":"get_weather","arguments":"{\"location\":\"Prague\"}"}}]}}]}`

	aug.InterceptResponse([]byte(resp))

	facts, _ := store.Facts()
	if len(facts) != 0 {
		t.Errorf("Facts() = %v, want empty", facts)
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	aug, _ := newTestAugmenter(t)

	resp := `{"choices":[{"message":{"role":"assistant","tool_calls":[` +
		`{"function":{"name":"save_memory","arguments":"{\"fact\": \"GPU has 8GB VRAM\"}"}}]}}]}`
	aug.InterceptResponse([]byte(resp))

	out := aug.AugmentRequest([]byte(`{"messages":[{"role":"user","content":"hi"}]}`))
	content := gjson.GetBytes(out, "messages.0.content").String()
	if !strings.Contains(content, "GPU has 8GB VRAM") {
		t.Errorf("subsequent request missing persisted fact: %q", content)
	}
}

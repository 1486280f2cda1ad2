// Package rewrite normalizes backend chat-completion responses.
//
// All transforms operate on raw JSON bytes with targeted path edits, so
// fields this proxy knows nothing about pass through byte-for-byte.
package rewrite

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Rewriter applies the response-normalization pipeline: tool-call content
// nulling and best-effort repair of malformed tool-call arguments.
type Rewriter struct {
	repairer Repairer
	logger   *slog.Logger
}

// New creates a Rewriter. A nil repairer disables argument repair.
func New(repairer Repairer) *Rewriter {
	return &Rewriter{
		repairer: repairer,
		logger:   slog.Default().With("component", "rewrite"),
	}
}

// Normalize rewrites a backend response body:
//
//   - empty or missing choices: returned unchanged
//   - first choice with tool calls and falsy content: content set to null
//   - each tool-call arguments string that is not valid JSON: repaired
//
// Message content is never repaired; repair is scoped strictly to tool-call
// argument payloads. Normalize never fails: any edit that cannot be applied
// leaves the corresponding bytes as received.
func (rw *Rewriter) Normalize(raw []byte) []byte {
	choices := gjson.GetBytes(raw, "choices")
	if !choices.IsArray() || len(choices.Array()) == 0 {
		return raw
	}

	msg := gjson.GetBytes(raw, "choices.0.message")
	if !msg.Exists() {
		return raw
	}

	toolCalls := msg.Get("tool_calls")
	if !toolCalls.IsArray() || len(toolCalls.Array()) == 0 {
		return raw
	}

	out := raw

	// A tool-invoking turn carries no prose content.
	content := msg.Get("content")
	if !content.Exists() || content.Type == gjson.Null || content.String() == "" {
		out = rw.set(out, "choices.0.message.content", nil)
	}

	for i, call := range toolCalls.Array() {
		args := call.Get("function.arguments").String()
		if args == "" || json.Valid([]byte(args)) {
			continue
		}

		name := call.Get("function.name").String()
		if name == "" {
			name = "unknown"
		}

		if rw.repairer == nil {
			rw.logger.Warn("malformed tool arguments and no repairer configured", "tool", name)
			continue
		}

		repaired, err := rw.repairer.Repair(args)
		if err != nil {
			rw.logger.Warn("could not repair tool arguments", "tool", name, "error", err)
			continue
		}

		rw.logger.Info("repaired malformed tool arguments", "tool", name)
		path := fmt.Sprintf("choices.0.message.tool_calls.%d.function.arguments", i)
		out = rw.set(out, path, repaired)
	}

	return out
}

// set applies a single path edit, keeping the input on failure.
func (rw *Rewriter) set(raw []byte, path string, value interface{}) []byte {
	out, err := sjson.SetBytes(raw, path, value)
	if err != nil {
		rw.logger.Warn("response edit failed", "path", path, "error", err)
		return raw
	}
	return out
}

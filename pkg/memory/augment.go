package memory

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"gpuswitch/relay/pkg/rewrite"
)

// ToolName is the virtual tool the model calls to persist a fact.
const ToolName = "save_memory"

// toolDefinition is the save_memory tool spec injected into outgoing
// requests: a single required "fact" string parameter.
var toolDefinition = []byte(`{"type":"function","function":{"name":"save_memory","description":"Save a new lasting fact about the user or their environment to persistent memory.","parameters":{"type":"object","properties":{"fact":{"type":"string","description":"The fact to remember, stated as one short sentence."}},"required":["fact"]}}}`)

// Augmenter injects persistent memory into outgoing requests and intercepts
// save_memory tool calls on the way back.
type Augmenter struct {
	store    *Store
	repairer rewrite.Repairer
	logger   *slog.Logger
}

// NewAugmenter creates an Augmenter over the given store. The repairer is
// used as a fallback when save_memory arguments arrive malformed.
func NewAugmenter(store *Store, repairer rewrite.Repairer) *Augmenter {
	return &Augmenter{
		store:    store,
		repairer: repairer,
		logger:   slog.Default().With("component", "memory"),
	}
}

// AugmentRequest rewrites an outgoing chat request in place:
//
//   - when memory is non-empty, a persistent-memory block is appended to the
//     system message (one is prepended if the request has none)
//   - the save_memory tool definition is added to the tool list exactly once
//
// Augmentation is best-effort: any failure returns the request unchanged.
func (a *Augmenter) AugmentRequest(raw []byte) []byte {
	facts, err := a.store.Facts()
	if err != nil {
		a.logger.Warn("could not read memory artifact, skipping injection", "error", err)
		facts = nil
	}

	out := raw
	if len(facts) > 0 {
		out = a.injectSystemBlock(out, facts)
	}
	return a.ensureTool(out)
}

// injectSystemBlock places the memory block into the system message.
func (a *Augmenter) injectSystemBlock(raw []byte, facts []string) []byte {
	block := formatBlock(facts)

	messages := gjson.GetBytes(raw, "messages")
	if messages.IsArray() {
		for i, msg := range messages.Array() {
			if msg.Get("role").String() != "system" {
				continue
			}

			content := msg.Get("content")
			if content.Type != gjson.String {
				// Multimodal or structured system content: leave it alone
				// and fall through to prepending a dedicated message.
				break
			}

			merged := content.String() + "\n\n" + block
			out, err := sjson.SetBytes(raw, fmt.Sprintf("messages.%d.content", i), merged)
			if err != nil {
				a.logger.Warn("failed to extend system message", "error", err)
				return raw
			}
			return out
		}
	}

	return a.prependSystemMessage(raw, block)
}

// prependSystemMessage inserts a fresh system message at position zero.
func (a *Augmenter) prependSystemMessage(raw []byte, block string) []byte {
	msg, err := json.Marshal(map[string]string{"role": "system", "content": block})
	if err != nil {
		return raw
	}

	messages := gjson.GetBytes(raw, "messages")
	rebuilt := string(msg)
	if messages.IsArray() && len(messages.Array()) > 0 {
		inner := strings.TrimSpace(messages.Raw)
		rebuilt = rebuilt + "," + inner[1:len(inner)-1]
	}

	out, err := sjson.SetRawBytes(raw, "messages", []byte("["+rebuilt+"]"))
	if err != nil {
		a.logger.Warn("failed to prepend system message", "error", err)
		return raw
	}
	return out
}

// ensureTool adds the save_memory tool definition unless one with the same
// name is already present.
func (a *Augmenter) ensureTool(raw []byte) []byte {
	tools := gjson.GetBytes(raw, "tools")

	if tools.IsArray() {
		for _, tool := range tools.Array() {
			if tool.Get("function.name").String() == ToolName {
				return raw
			}
		}
		out, err := sjson.SetRawBytes(raw, "tools.-1", toolDefinition)
		if err != nil {
			a.logger.Warn("failed to append save_memory tool", "error", err)
			return raw
		}
		return out
	}

	out, err := sjson.SetRawBytes(raw, "tools", []byte(`[`+string(toolDefinition)+`]`))
	if err != nil {
		a.logger.Warn("failed to add tool list", "error", err)
		return raw
	}
	return out
}

// InterceptResponse persists the fact carried by any save_memory tool call in
// the response. The tool call itself is left in the response and forwarded to
// the client like any other. Failures are logged, never propagated.
func (a *Augmenter) InterceptResponse(raw []byte) {
	calls := gjson.GetBytes(raw, "choices.0.message.tool_calls")
	if !calls.IsArray() {
		return
	}

	for _, call := range calls.Array() {
		if call.Get("function.name").String() != ToolName {
			continue
		}

		args := call.Get("function.arguments").String()
		fact := gjson.Get(args, "fact").String()

		if fact == "" && a.repairer != nil {
			repaired, err := a.repairer.Repair(args)
			if err != nil {
				a.logger.Warn("could not repair save_memory arguments", "error", err)
				continue
			}
			fact = gjson.Get(repaired, "fact").String()
		}

		if fact == "" {
			a.logger.Warn("save_memory call without a fact", "arguments", args)
			continue
		}

		if err := a.store.Append(fact); err != nil {
			a.logger.Warn("failed to persist fact", "error", err)
			continue
		}
		a.logger.Info("persisted memory fact", "fact", fact)
	}
}

// formatBlock renders the persistent-memory block injected into the system
// message.
func formatBlock(facts []string) string {
	var b strings.Builder
	b.WriteString("Persistent memory (facts saved from earlier conversations):\n")
	for _, fact := range facts {
		b.WriteString("- ")
		b.WriteString(fact)
		b.WriteString("\n")
	}
	b.WriteString("\nWhen the conversation reveals a new lasting fact that is not listed above, call the save_memory tool with that fact. Do not save facts that are already known.")
	return b.String()
}

package rewrite

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// doneFrame is the terminal sentinel of an SSE chat-completion stream.
const doneFrame = "data: [DONE]\n\n"

// Frames synthesizes a minimal SSE stream from a completed (non-streaming)
// response: one delta-shaped chunk carrying the whole message, then the
// terminal sentinel. It is a protocol-compatibility shim for clients that
// requested streaming, not incremental delivery.
func Frames(resp []byte) [][]byte {
	chunk, err := sjson.SetBytes(resp, "object", "chat.completion.chunk")
	if err != nil {
		chunk = resp
	}

	for i, choice := range gjson.GetBytes(chunk, "choices").Array() {
		msg := choice.Get("message")
		if !msg.Exists() {
			continue
		}

		// Rename the message field to the delta field the streaming shape
		// requires, preserving everything inside it.
		chunk, _ = sjson.SetRawBytes(chunk, fmt.Sprintf("choices.%d.delta", i), []byte(msg.Raw))
		chunk, _ = sjson.DeleteBytes(chunk, fmt.Sprintf("choices.%d.message", i))

		// Streamed tool calls carry a zero-based index.
		calls := gjson.GetBytes(chunk, fmt.Sprintf("choices.%d.delta.tool_calls", i))
		for j := range calls.Array() {
			chunk, _ = sjson.SetBytes(chunk, fmt.Sprintf("choices.%d.delta.tool_calls.%d.index", i, j), j)
		}
	}

	first := make([]byte, 0, len(chunk)+len("data: \n\n"))
	first = append(first, "data: "...)
	first = append(first, chunk...)
	first = append(first, "\n\n"...)

	return [][]byte{first, []byte(doneFrame)}
}

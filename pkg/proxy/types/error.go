package types

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the flat error body returned for every failure:
//
//	{"error": "Invalid JSON"}
//
// Clients built for the llama.cpp server ecosystem expect this shape, so it
// stays a plain string rather than the nested OpenAI error object.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Canonical error messages.
const (
	// MsgNoData is returned when the request body is empty.
	MsgNoData = "No data provided"

	// MsgInvalidJSON is returned when the request body cannot be parsed.
	MsgInvalidJSON = "Invalid JSON"

	// MsgMethodNotAllowed is returned for unsupported HTTP methods.
	MsgMethodNotAllowed = "Method not allowed"

	// MsgBackendUnreachable is returned when the backend cannot be reached.
	MsgBackendUnreachable = "Backend request failed"

	// MsgInternalError is returned for unexpected server failures.
	MsgInternalError = "Internal server error"
)

// WriteError writes a JSON error response with the given status code.
func WriteError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// ActivationFailedMessage formats the error body for a model that could not
// be brought up.
func ActivationFailedMessage(model string) string {
	return "Failed to activate model " + model
}

package types

// Model describes one entry in the /v1/models listing.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

// ModelList is the OpenAI-compatible response for GET /v1/models.
type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

// NewModelList builds a listing from configured model identifiers. The
// identifiers are expected to be pre-sorted by the caller.
func NewModelList(ids []string) ModelList {
	data := make([]Model, 0, len(ids))
	for _, id := range ids {
		data = append(data, Model{
			ID:      id,
			Object:  "model",
			OwnedBy: "organization",
		})
	}
	return ModelList{Object: "list", Data: data}
}

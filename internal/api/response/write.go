package response

import (
	"encoding/json"
	"net/http"
)

// Items is the envelope of every collection response
type Items[T any] struct {
	Items []T `json:"items"`
}

// JSON writes a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Collection writes a 200 response with the items wrapped in an Items envelope
func Collection[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	JSON(w, http.StatusOK, Items[T]{Items: items})
}

// Private writes a JSON response that must not be cached because it carries
// credentials
func Private(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Cache-Control", "no-store")
	JSON(w, status, data)
}

// NoContent writes a 204 No Content response
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Package respond writes JSON bodies and error envelopes for HTTP handlers.
package respond

import (
	"encoding/json"
	"net/http"

	"amlaw-directory/internal/model"
)

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes {"error": code} and an optional detail.
func Error(w http.ResponseWriter, status int, code, detail string) {
	JSON(w, status, model.ErrorResponse{Error: code, Detail: detail})
}

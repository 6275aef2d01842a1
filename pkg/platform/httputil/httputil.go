// Package httputil writes the JSON responses the gateway produces itself.
package httputil

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the envelope for errors originated by this server. It matches
// the shape the upstream API uses so clients classify both the same way.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the {"error","message"} envelope.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorBody{Error: code, Message: message})
}

package util

import (
	"encoding/json"
	"net/http"
)

// Envelope is the structured outcome every endpoint returns: ok/fail, a
// human-readable message and optional data. Nothing escapes the handlers
// unwrapped except the legacy bare-array submenu endpoint.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{Success: status < 400, Message: message, Data: data})
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, message, nil)
}

// WriteRaw bypasses the envelope for legacy-compatible payload shapes.
func WriteRaw(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

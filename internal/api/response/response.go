// Package response writes the JSON envelope every endpoint uses. Successful
// responses carry their payload under "data"; list endpoints add a "meta"
// block; failures carry a machine-readable code under "error".
package response

import (
	"encoding/json"
	"net/http"
)

// CollectionMeta describes a list response. The API is limit-based, not
// paged: Count is how many items were returned, Limit the cap applied.
type CollectionMeta struct {
	Count int `json:"count"`
	Limit int `json:"limit"`
}

type envelope struct {
	Data any             `json:"data"`
	Meta *CollectionMeta `json:"meta,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Data: data})
}

func Created(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, envelope{Data: data})
}

func Collection(w http.ResponseWriter, data any, meta CollectionMeta) {
	writeJSON(w, http.StatusOK, envelope{Data: data, Meta: &meta})
}

func Error(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{
		Code:    code,
		Message: message,
		Details: details,
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

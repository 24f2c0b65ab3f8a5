// Package response provides shared JSON response helpers for HTTP handlers.
// Every body carries either a "message" or an "error" key, or an
// endpoint-specific payload.
package response

import (
	"encoding/json"
	"net/http"
)

// Message is the body of a successful command.
type Message struct {
	Message string `json:"message"`
}

// Error is the body of every failed request.
type Error struct {
	Error string `json:"error"`
}

// JSON writes a JSON-encoded payload with the given HTTP status code.
func JSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// OK writes a 200 response with payload as the body.
func OK(w http.ResponseWriter, payload interface{}) {
	JSON(w, http.StatusOK, payload)
}

// OKMessage writes a 200 response with a message body.
func OKMessage(w http.ResponseWriter, message string) {
	JSON(w, http.StatusOK, Message{Message: message})
}

// Fail writes an error response with the given status and message.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Error{Error: message})
}

// BadRequest writes a 400 response.
func BadRequest(w http.ResponseWriter, message string) {
	Fail(w, http.StatusBadRequest, message)
}

// NotFound writes a 404 response.
func NotFound(w http.ResponseWriter, message string) {
	Fail(w, http.StatusNotFound, message)
}

// InternalError writes a 500 response carrying err's text as is.
func InternalError(w http.ResponseWriter, err error) {
	Fail(w, http.StatusInternalServerError, err.Error())
}

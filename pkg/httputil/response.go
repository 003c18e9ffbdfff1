// Package httputil provides HTTP handler utilities for consistent error handling,
// JSON encoding/decoding, and request parsing.
package httputil

import (
	"encoding/json"
	"net/http"
)

// Error titles shared by every error body
const (
	TitleValidation = "Validation failed"
	TitleForbidden  = "Forbidden"
	TitleInternal   = "Internal server error"
	TitleAccess     = "Access denied"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// MessageResponse is the body of responses that only carry a message
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteText writes a plain text response
func WriteText(w http.ResponseWriter, status int, body string) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write([]byte(body))
	return err
}

// WriteError writes a JSON {error, message} body
func WriteError(w http.ResponseWriter, status int, title, message string) {
	WriteJSON(w, status, ErrorResponse{
		Error:   title,
		Message: message,
	})
}

// WriteValidationError writes a 400 with per-field details
func WriteValidationError(w http.ResponseWriter, message string, details map[string]string) {
	WriteJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   TitleValidation,
		Message: message,
		Details: details,
	})
}

// WriteUnauthorized writes an access denied error (401)
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, TitleAccess, message)
}

// WriteForbidden writes a forbidden error (403)
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, TitleForbidden, message)
}

// WriteNotFound writes a not found error (404)
func WriteNotFound(w http.ResponseWriter, title, message string) {
	WriteError(w, http.StatusNotFound, title, message)
}

// WriteConflict writes a conflict error (409)
func WriteConflict(w http.ResponseWriter, title, message string) {
	WriteError(w, http.StatusConflict, title, message)
}

// WriteInternalError writes a 500. Internal error text is never echoed.
func WriteInternalError(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Something went wrong"
	}
	WriteError(w, http.StatusInternalServerError, TitleInternal, message)
}

// WriteCreated writes a successful creation response (201 Created) with JSON data
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

// WriteSuccess writes a successful response (200 OK) with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteMessage writes a 200 with only a message
func WriteMessage(w http.ResponseWriter, message string) error {
	return WriteJSON(w, http.StatusOK, MessageResponse{Message: message})
}

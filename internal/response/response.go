// Package response provides shared JSON response helpers for HTTP handlers.
package response

import (
	"encoding/json"
	"net/http"
)

// Error codes carried in ErrorBody.Code.
const (
	CodeOrderNotFound    = "ORDER_NOT_FOUND"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeFileUploadFailed = "FILE_UPLOAD_FAILED"
	CodeNoFileAttached   = "NO_FILE_ATTACHED"
	CodeInternal         = "INTERNAL_SERVER_ERROR"
)

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Code    string `json:"code"    example:"ORDER_NOT_FOUND"`
	Message string `json:"message" example:"order 42 not found"`
	Status  int    `json:"status"  example:"404"`
}

// JSON writes a JSON-encoded payload with the given HTTP status code.
func JSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// OK writes a 200 response with data.
func OK(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

// Created writes a 201 response with data.
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// NoContent writes a bodiless 204 response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes an ErrorBody with the given status, code and message.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorBody{Code: code, Message: message, Status: status})
}

// BadRequest writes a 400 response.
func BadRequest(w http.ResponseWriter, code, message string) {
	Error(w, http.StatusBadRequest, code, message)
}

// NotFound writes a 404 response.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, CodeOrderNotFound, message)
}

// Conflict writes a 409 response.
func Conflict(w http.ResponseWriter, code, message string) {
	Error(w, http.StatusConflict, code, message)
}

// InternalError writes a 500 response with a generic message.
func InternalError(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, CodeInternal, "internal server error")
}

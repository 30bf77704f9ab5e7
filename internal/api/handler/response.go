package handler

import (
	"encoding/json"
	"net/http"
)

// RequestIDHeader carries the request id on every gateway response.
const RequestIDHeader = "X-Request-Id"

// JSON writes data with the given status. Responses are marked no-store
// since they carry presigned URLs.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, "failed to encode response", http.StatusInternalServerError)
		}
	}
}

// ErrorResponse is the body of every non-2xx gateway response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Error writes an ErrorResponse. The request id is taken from the response
// header set by the request id middleware, so clients can quote it.
func Error(w http.ResponseWriter, status int, code string, message string) {
	JSON(w, status, ErrorResponse{
		Error:     code,
		Message:   message,
		RequestID: w.Header().Get(RequestIDHeader),
	})
}

package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"prstocks-api/pkg/apierror"
)

// Response represents the standard envelope returned by every endpoint.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// JSON sends a successful data envelope with the given status code.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	Raw(w, statusCode, Response{
		Success: true,
		Data:    data,
	})
}

// Raw writes body as-is. Used for payloads that predate the envelope.
func Raw(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// Message sends {"success": true, "message": msg}.
func Message(w http.ResponseWriter, msg string) {
	Raw(w, http.StatusOK, Response{
		Success: true,
		Message: msg,
	})
}

// Error sends an error response. Anything that is not an *apierror.Error
// becomes a 500 with a generic detail.
func Error(w http.ResponseWriter, err error) {
	var apiErr *apierror.Error
	if !errors.As(err, &apiErr) {
		apiErr = apierror.InternalError("an unexpected error occurred")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.StatusCode)
	w.Write(apiErr.ToJSON())
}

// OK sends a 200 OK response.
func OK(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

package errors

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the JSON shape of a rejected request.
type ErrorBody struct {
	Error   string                   `json:"error"`
	Code    ErrorCode                `json:"code"`
	Details string                   `json:"details,omitempty"`
	Reply   string                   `json:"reply,omitempty"`
	Actions []map[string]interface{} `json:"actions,omitempty"`
}

// WriteJSON encodes body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError writes err using the status mapped from its code.
func WriteError(w http.ResponseWriter, err error) {
	stdErr := Normalize(err)
	status := HTTPStatus(stdErr.Code)
	if status == http.StatusOK {
		status = http.StatusInternalServerError
	}
	if stdErr.Code == ErrCodeMethodNotAllowed {
		w.Header().Set("Allow", http.MethodPost)
	}
	WriteJSON(w, status, ErrorBody{
		Error:   stdErr.Message,
		Code:    stdErr.Code,
		Details: stdErr.Details,
	})
}

// Package errors provides the error taxonomy shared by the HTTP surface and the job workers.
package errors

import (
	"fmt"
	"net/http"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeMissingCredentials ErrorCode = "MISSING_CREDENTIALS"

	ErrCodeUpstreamHTTPError ErrorCode = "UPSTREAM_HTTP_ERROR"
	ErrCodeUpstreamTimeout   ErrorCode = "UPSTREAM_TIMEOUT"
	ErrCodeNetworkError      ErrorCode = "NETWORK_ERROR"

	ErrCodeOutputMalformed ErrorCode = "OUTPUT_MALFORMED"
	ErrCodeOutputTruncated ErrorCode = "OUTPUT_TRUNCATED"

	ErrCodeMethodNotAllowed   ErrorCode = "METHOD_NOT_ALLOWED"
	ErrCodeInvalidRequestBody ErrorCode = "INVALID_REQUEST_BODY"

	ErrCodeQuotaExceeded    ErrorCode = "QUOTA_EXCEEDED"
	ErrCodeQuotaCheckFailed ErrorCode = "QUOTA_CHECK_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Error categories.
const (
	CategoryConfiguration = "CONFIGURATION"
	CategoryUpstream      = "UPSTREAM"
	CategoryParse         = "PARSE"
	CategoryValidation    = "VALIDATION"
	CategoryQuota         = "QUOTA"
	CategoryOther         = "OTHER"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata returns e with key set in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
	e.Metadata[key] = value
	return e
}

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingCredentialsError reports that no provider key is configured.
func NewMissingCredentialsError(provider string) *StandardError {
	return newError(ErrCodeMissingCredentials, "Completion provider credentials are not configured",
		fmt.Sprintf("provider: %s", provider), false)
}

func NewUpstreamHTTPError(status int, bodyExcerpt string) *StandardError {
	return newError(ErrCodeUpstreamHTTPError, "Completion provider returned an error status",
		fmt.Sprintf("status: %d, body: %s", status, bodyExcerpt), true).
		WithMetadata("status", status)
}

func NewUpstreamTimeoutError(timeout time.Duration) *StandardError {
	return newError(ErrCodeUpstreamTimeout, "Completion provider timed out",
		fmt.Sprintf("timeout: %s", timeout), true)
}

func NewNetworkError(err error) *StandardError {
	return newError(ErrCodeNetworkError, "Completion provider unreachable", err.Error(), true)
}

// NewOutputMalformedError reports model output that held no usable JSON object.
func NewOutputMalformedError(details string) *StandardError {
	return newError(ErrCodeOutputMalformed, "Model output is not a JSON object", details, false)
}

func NewOutputTruncatedError(details string) *StandardError {
	return newError(ErrCodeOutputTruncated, "Model output is truncated", details, false)
}

func NewMethodNotAllowedError(method string) *StandardError {
	return newError(ErrCodeMethodNotAllowed, "Method not allowed", fmt.Sprintf("method: %s", method), false)
}

func NewInvalidRequestBodyError(details string) *StandardError {
	return newError(ErrCodeInvalidRequestBody, "Invalid request body", details, false)
}

func NewQuotaExceededError(userID string, used, allowance int64) *StandardError {
	return newError(ErrCodeQuotaExceeded, "Usage quota exceeded",
		fmt.Sprintf("userId: %s, used: %d, allowance: %d", userID, used, allowance), false)
}

func NewQuotaCheckFailedError(err error) *StandardError {
	return newError(ErrCodeQuotaCheckFailed, "Usage quota check failed", err.Error(), true)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// HTTPStatus maps an error code to the status the HTTP surface answers with.
// Upstream, parse and configuration problems are absorbed into a 200 fallback.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrCodeInvalidRequestBody:
		return http.StatusBadRequest
	case ErrCodeQuotaExceeded:
		return http.StatusPaymentRequired
	case ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeUpstreamHTTPError, ErrCodeNetworkError, ErrCodeQuotaCheckFailed:
		return 3
	case ErrCodeUpstreamTimeout:
		return 1
	default:
		return 0
	}
}

func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeMissingCredentials:
		return CategoryConfiguration
	case ErrCodeUpstreamHTTPError, ErrCodeUpstreamTimeout, ErrCodeNetworkError:
		return CategoryUpstream
	case ErrCodeOutputMalformed, ErrCodeOutputTruncated:
		return CategoryParse
	case ErrCodeMethodNotAllowed, ErrCodeInvalidRequestBody:
		return CategoryValidation
	case ErrCodeQuotaExceeded, ErrCodeQuotaCheckFailed:
		return CategoryQuota
	default:
		return CategoryOther
	}
}

// ConvertToBPMNError builds the error thrown back to the workflow engine.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"errorCategory": GetErrorCategory(stdErr.Code),
			"timestamp":     stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

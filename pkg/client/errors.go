package client

import (
	"errors"
	"fmt"
)

// APIError is the normalized form of every failed request. Message is
// always user-presentable regardless of what the server returned.
type APIError struct {
	Status    int    // 0 when no response was received
	Code      string // server error code when available
	Message   string
	Retryable bool
	Err       error
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.Err }

func (e *APIError) Timeout() bool { return e.Status == 0 && e.Code == "TIMEOUT" }

func normalizeStatus(status int, code, serverMsg string) *APIError {
	ae := &APIError{Status: status, Code: code}

	switch {
	case status == 400:
		ae.Message = "Invalid request. Please check your input."
	case status == 401:
		ae.Message = "Authentication required. Please sign in."
	case status == 403:
		ae.Message = "Access denied."
	case status == 404:
		ae.Message = "The requested resource was not found."
	case status == 409:
		ae.Message = "This conflicts with the current state. Please refresh and try again."
	case status == 422:
		ae.Message = "The submitted data could not be processed."
	case status == 429:
		ae.Message = "Too many requests. Please slow down."
		ae.Retryable = true
	case status >= 500:
		ae.Message = "Server error. Please try again later."
		ae.Retryable = true
	default:
		ae.Message = "Request failed. Please try again."
	}

	// Prefer a concrete server message for 4xx validation feedback.
	if serverMsg != "" && status >= 400 && status < 500 && status != 401 && status != 403 {
		ae.Message = serverMsg
	}
	return ae
}

func normalizeTransport(err error, timedOut bool) *APIError {
	if timedOut {
		return &APIError{
			Code:      "TIMEOUT",
			Message:   "Request timed out. The server is taking too long to respond.",
			Retryable: true,
			Err:       err,
		}
	}
	return &APIError{
		Code:      "NETWORK",
		Message:   "Network error. Please check your connection.",
		Retryable: true,
		Err:       err,
	}
}

// IsRetryable reports whether a request that produced err may be
// retried. Client errors (4xx other than 429) never are.
func IsRetryable(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	return false
}

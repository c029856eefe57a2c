package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common errors returned by the client.
var (
	// ErrRateLimitExhausted is returned when requests keep receiving 429
	// after the configured number of rate limit waits.
	ErrRateLimitExhausted = errors.New("rate limit retries exhausted")

	// ErrContextCancelled is returned when the context ends between attempts.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents transport failures with no response.
	ErrorClassNetwork ErrorClass = "network"
)

// classifyStatus maps a non-2xx status code to an ErrorClass.
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// APIError is a failed request: either a non-2xx response (StatusCode and
// Body set) or a transport failure (Err set).
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Class      ErrorClass

	// Body is the raw response body, truncated to maxErrorBody bytes.
	Body string

	// ErrorCode and ErrorSummary are decoded from the identity provider's
	// JSON error body when present.
	ErrorCode    string
	ErrorSummary string

	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s error: %v", e.Method, e.URL, e.Class, e.Err)
	}

	detail := e.ErrorSummary
	if detail == "" {
		detail = strings.TrimSpace(e.Body)
	}
	if e.ErrorCode != "" {
		detail = e.ErrorCode + ": " + detail
	}
	if detail == "" {
		detail = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: HTTP %d (%s error): %s", e.Method, e.URL, e.StatusCode, e.Class, detail)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// errorBody is the identity provider's JSON error envelope.
type errorBody struct {
	ErrorCode    string `json:"errorCode"`
	ErrorSummary string `json:"errorSummary"`
}

func newStatusError(method, url string, statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		Method:     method,
		URL:        url,
		StatusCode: statusCode,
		Class:      classifyStatus(statusCode),
		Body:       string(body),
	}

	var envelope errorBody
	if json.Unmarshal(body, &envelope) == nil {
		apiErr.ErrorCode = envelope.ErrorCode
		apiErr.ErrorSummary = envelope.ErrorSummary
	}
	return apiErr
}

// StatusCode returns the HTTP status of an APIError in err's chain, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsHTTPError reports whether err carries a non-2xx response, as opposed
// to a transport or local failure.
func IsHTTPError(err error) bool {
	return StatusCode(err) != 0
}

// shouldRetry reports whether a failed attempt may be repeated. Only rate
// limit responses are retried, after the tracker has waited for the reset.
func shouldRetry(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Class == ErrorClassRateLimit
}

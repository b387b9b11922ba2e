package capi

import (
	"encoding/json"
	"errors"
	"fmt"
)

// APIError represents an error from the CF API.
type APIError struct {
	Code   int    `json:"code"   yaml:"code"`
	Title  string `json:"title"  yaml:"title"`
	Detail string `json:"detail" yaml:"detail"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s (code: %d)", e.Title, e.Detail, e.Code)
}

// ResponseError represents the error response from the API.
type ResponseError struct {
	StatusCode int        `json:"-"`
	Errors     []APIError `json:"errors"`
}

// Error implements the error interface for ResponseError.
func (e *ResponseError) Error() string {
	if len(e.Errors) == 0 {
		if e.StatusCode != 0 {
			return fmt.Sprintf("unexpected status code %d", e.StatusCode)
		}

		return "unknown error"
	}

	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	return fmt.Sprintf("multiple errors: %v", e.Errors)
}

// FirstError returns the first error or nil.
func (e *ResponseError) FirstError() *APIError {
	if len(e.Errors) > 0 {
		return &e.Errors[0]
	}

	return nil
}

// Common error codes.
const (
	ErrorCodeInvalidAuthToken = 1000
	ErrorCodeNotFound         = 10010
	ErrorCodeNotAuthenticated = 10002
	ErrorCodeNotAuthorized    = 10003
)

// Common error types.
var (
	ErrNotFound     = &APIError{Code: ErrorCodeNotFound, Title: "CF-ResourceNotFound"}
	ErrUnauthorized = &APIError{Code: ErrorCodeNotAuthenticated, Title: "CF-NotAuthenticated"}
)

// Common static errors that can be wrapped with context.
var (
	ErrConfigRequired      = errors.New("config is required")
	ErrAPIEndpointRequired = errors.New("API endpoint is required")
	ErrCLIRequired         = errors.New("a cf session is required")
	ErrNoUAAOrLoginURL     = errors.New("no UAA or login URL found in API root info")
	ErrNotCloudController  = errors.New("endpoint does not serve the Cloud Controller v3 API")
)

func firstCode(err error) (int, bool) {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}

	errResp := &ResponseError{}
	if errors.As(err, &errResp) {
		first := errResp.FirstError()
		if first != nil {
			return first.Code, true
		}
	}

	return 0, false
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	code, ok := firstCode(err)

	return ok && code == ErrorCodeNotFound
}

// IsUnauthorized checks if the error signals a missing or rejected token.
func IsUnauthorized(err error) bool {
	code, ok := firstCode(err)
	if ok && (code == ErrorCodeNotAuthenticated || code == ErrorCodeInvalidAuthToken) {
		return true
	}

	errResp := &ResponseError{}

	return errors.As(err, &errResp) && errResp.StatusCode == 401
}

// IsForbidden checks if the error is a forbidden error.
func IsForbidden(err error) bool {
	code, ok := firstCode(err)

	return ok && code == ErrorCodeNotAuthorized
}

// ParseResponseError parses an error response from JSON.
func ParseResponseError(data []byte) (*ResponseError, error) {
	var errResp ResponseError

	err := json.Unmarshal(data, &errResp)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal response error: %w", err)
	}

	return &errResp, nil
}

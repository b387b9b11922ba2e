package capi

import (
	"errors"
	"fmt"
)

// FailureKind classifies a failed Result.
type FailureKind int

const (
	// FailureNone is the kind of every successful result.
	FailureNone FailureKind = iota
	// FailureInvalidRefreshToken means the session cannot mint tokens anymore and
	// the user must authenticate again.
	FailureInvalidRefreshToken
	// FailureOther covers every other failure.
	FailureOther
)

// String implements fmt.Stringer.
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "None"
	case FailureInvalidRefreshToken:
		return "InvalidRefreshToken"
	case FailureOther:
		return "Other"
	default:
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
}

// Result is the outcome of a remote operation. Exactly one of Content (when
// Succeeded) or Explanation/FailureKind (when not) is meaningful.
type Result[T any] struct {
	Succeeded   bool
	Content     T
	Explanation string
	FailureKind FailureKind

	// Err is the error that produced a failure, kept for errors.Is checks.
	Err error
}

// Success wraps content in a successful result.
func Success[T any](content T) Result[T] {
	return Result[T]{
		Succeeded:   true,
		Content:     content,
		FailureKind: FailureNone,
	}
}

// Failure builds a failed result from an error.
func Failure[T any](kind FailureKind, err error) Result[T] {
	if kind == FailureNone {
		kind = FailureOther
	}

	explanation := "unknown error"
	if err != nil {
		explanation = err.Error()
	}

	return Result[T]{
		Explanation: explanation,
		FailureKind: kind,
		Err:         err,
	}
}

// Unwrap returns the content and a *FailureError for failed results.
func (r Result[T]) Unwrap() (T, error) {
	return r.Content, r.AsError()
}

// AsError returns nil for successful results and a *FailureError otherwise.
func (r Result[T]) AsError() error {
	if r.Succeeded {
		return nil
	}

	return &FailureError{
		Kind:        r.FailureKind,
		Explanation: r.Explanation,
		Cause:       r.Err,
	}
}

// FailureError carries a failed Result through error-returning code.
type FailureError struct {
	Kind        FailureKind
	Explanation string
	Cause       error
}

// Error implements the error interface.
func (e *FailureError) Error() string {
	return e.Explanation
}

// Unwrap exposes the underlying cause.
func (e *FailureError) Unwrap() error {
	return e.Cause
}

// IsInvalidRefreshToken reports whether err is a failure that requires
// re-authentication.
func IsInvalidRefreshToken(err error) bool {
	failure := &FailureError{}
	if errors.As(err, &failure) {
		return failure.Kind == FailureInvalidRefreshToken
	}

	return false
}

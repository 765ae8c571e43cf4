package provider

import (
	"errors"
	"fmt"

	"github.com/apiscerena/medusa-paypal/internal/client"
)

// Kind classifies provider failures so callers can decide on user-facing
// messaging and HTTP status without string matching.
type Kind string

const (
	KindInvalidInput     Kind = "invalid_input"
	KindUpstreamFailure  Kind = "upstream_failure"
	KindInvalidState     Kind = "invalid_state"
	KindSignatureInvalid Kind = "signature_invalid"
	KindNotFound         Kind = "not_found"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the taxonomy kind from err, defaulting to
// upstream-failure for untyped errors.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUpstreamFailure
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// upstreamError converts a client failure into a typed provider error,
// distinguishing a 404 from other non-success responses.
func upstreamError(err error, operation string) *Error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
		return wrapError(KindNotFound, err, "%s: remote entity not found", operation)
	}
	return wrapError(KindUpstreamFailure, err, "%s failed", operation)
}

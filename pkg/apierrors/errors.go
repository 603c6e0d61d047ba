// Package apierrors defines the gateway's error taxonomy and its mapping to
// HTTP status codes. Every stage in the pipeline returns one of these
// instead of a bare error so the transport edge can decide the response
// without inspecting error strings.
package apierrors

import "net/http"

// Code names one kind in the gateway's error taxonomy.
type Code string

const (
	InvalidClient   Code = "invalid_client"
	PolicyBlock     Code = "policy_block"
	ReputationBlock Code = "reputation_block"
	RateLimited     Code = "rate_limited"
	Misconfig       Code = "misconfig"
	TransientStore  Code = "transient_store"
	AdapterFailure  Code = "adapter_failure"
	NotFound        Code = "not_found"
)

// Error is the typed error value carried through the pipeline. Msg is
// human-readable detail; it is omitted from client-facing responses for
// internal-shaped codes (Misconfig, TransientStore, AdapterFailure) so
// implementation detail never leaks past the edge.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Msg
}

// New constructs an Error of the given kind.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Status maps a taxonomy code to its HTTP status.
func Status(code Code) int {
	switch code {
	case InvalidClient:
		return http.StatusBadRequest
	case PolicyBlock, ReputationBlock:
		return http.StatusForbidden
	case RateLimited:
		return http.StatusTooManyRequests
	case NotFound:
		return http.StatusNotFound
	case Misconfig, TransientStore, AdapterFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Internal reports whether a code's detail message should be hidden from
// clients.
func Internal(code Code) bool {
	switch code {
	case Misconfig, TransientStore, AdapterFailure:
		return true
	default:
		return false
	}
}

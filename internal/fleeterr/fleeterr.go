package fleeterr

import (
	"errors"
	"fmt"
)

// Kind categorizes a fleet error for propagation decisions and exit codes.
type Kind int

const (
	// KindUnknown is an unclassified error
	KindUnknown Kind = iota
	// KindValidation is a local filter/flag validation error, raised before any network call
	KindValidation
	// KindAuth is an authentication/authorization failure (401/403)
	KindAuth
	// KindNetwork is a host-unreachable or resolution failure
	KindNetwork
	// KindAPI is a malformed or unexpected API response
	KindAPI
	// KindTransient is a timeout/connection reset that may succeed on retry
	KindTransient
	// KindCanceled is a query aborted by its cancellation signal
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNetwork:
		return "network"
	case KindAPI:
		return "api"
	case KindTransient:
		return "transient"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// FleetError wraps an error with its kind and optional help text for the user.
type FleetError struct {
	Kind    Kind
	Err     error
	Context string
}

func (e *FleetError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%v\n%s", e.Err, e.Context)
	}
	return e.Err.Error()
}

func (e *FleetError) Unwrap() error {
	return e.Err
}

// Validation creates a validation error with usage hints.
func Validation(err error, context string) *FleetError {
	return &FleetError{Kind: KindValidation, Err: err, Context: context}
}

// Auth creates an authentication error.
func Auth(err error) *FleetError {
	return &FleetError{
		Kind:    KindAuth,
		Err:     err,
		Context: "Check that GITLAB_TOKEN is set to a token with read_api scope.",
	}
}

// Network creates a connectivity error.
func Network(err error) *FleetError {
	return &FleetError{Kind: KindNetwork, Err: err}
}

// API creates a malformed-response error.
func API(err error) *FleetError {
	return &FleetError{Kind: KindAPI, Err: err}
}

// Transient creates a retryable network error.
func Transient(err error) *FleetError {
	return &FleetError{Kind: KindTransient, Err: err}
}

// Canceled creates a cancellation error.
func Canceled(err error) *FleetError {
	return &FleetError{Kind: KindCanceled, Err: err}
}

// KindOf reports the kind of err, or KindUnknown if it carries none.
func KindOf(err error) Kind {
	var fe *FleetError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// IsFatal reports whether err must abort the whole query. Transient errors
// are only fatal after the page fetcher has exhausted its single retry, at
// which point it re-wraps them.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindAuth, KindNetwork, KindAPI:
		return true
	default:
		return false
	}
}

// IsTransient reports whether err is worth one immediate retry.
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}

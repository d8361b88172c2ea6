package fleeterr

import "errors"

const (
	// ExitCodeSuccess indicates successful execution
	ExitCodeSuccess = 0

	// ExitCodeRuntime indicates a general runtime error
	ExitCodeRuntime = 1

	// ExitCodeValidation indicates a usage/validation error (follows bash convention)
	ExitCodeValidation = 2

	// ExitCodeAuth indicates an authentication failure
	ExitCodeAuth = 3

	// ExitCodeAPI indicates a malformed API response
	ExitCodeAPI = 4

	// ExitCodeNetwork indicates a network connectivity error
	ExitCodeNetwork = 5
)

// ExitCode returns the exit code for a kind.
func ExitCode(k Kind) int {
	switch k {
	case KindValidation:
		return ExitCodeValidation
	case KindAuth:
		return ExitCodeAuth
	case KindAPI:
		return ExitCodeAPI
	case KindNetwork, KindTransient:
		return ExitCodeNetwork
	default:
		return ExitCodeRuntime
	}
}

// ExitCodeFromError extracts the exit code from an error.
// Returns ExitCodeRuntime for errors without a kind.
func ExitCodeFromError(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	var fe *FleetError
	if errors.As(err, &fe) {
		return ExitCode(fe.Kind)
	}
	return ExitCodeRuntime
}

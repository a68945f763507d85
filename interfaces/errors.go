package interfaces

import "errors"

var (
	// ErrCorrelation is returned when the element token selected to carry a
	// finalize request is not among the collected contributions.
	ErrCorrelation = errors.New("element token not found in contributions")

	// ErrIncompleteContribution is returned when a contribution value is missing.
	ErrIncompleteContribution = errors.New("contribution is missing")

	// ErrArityMismatch is returned when the number of contributions differs
	// from the ceremony threshold.
	ErrArityMismatch = errors.New("contribution count does not match threshold")

	// ErrMalformedResponse is returned when a response lacks the finalize payload.
	ErrMalformedResponse = errors.New("malformed finalize response")

	// ErrUntrustedResponse is returned when a response verifier rejects a response.
	ErrUntrustedResponse = errors.New("finalize response failed verification")
)

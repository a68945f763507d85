package interfaces

// ResponseVerifier establishes trust in a finalize response before its public
// key is handed to the caller.
type ResponseVerifier interface {
	// Verify returns an error if the response should not be trusted.
	Verify(response CommandResponse) error

	// Name identifies the verifier for logging.
	Name() string
}

package verify

import (
	"encoding/binary"
	"errors"

	"github.com/ruteri/coldwallet-ceremony/interfaces"
)

var (
	// ErrMissingSignature is returned when a signature verifier receives an unsigned response.
	ErrMissingSignature = errors.New("response carries no signature")

	// ErrInvalidSignature is returned when a response signature does not verify.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrMissingPayload is returned when a response has no finalize payload to verify.
	ErrMissingPayload = errors.New("response carries no finalize payload")
)

// Noop accepts every response. It marks the absence of a provenance check.
type Noop struct{}

// Verify always succeeds.
func (Noop) Verify(interfaces.CommandResponse) error { return nil }

// Name returns "noop".
func (Noop) Name() string { return "noop" }

// Chain runs verifiers in order and fails on the first rejection.
type Chain []interfaces.ResponseVerifier

// Verify runs every verifier in the chain.
func (c Chain) Verify(response interfaces.CommandResponse) error {
	for _, v := range c {
		if err := v.Verify(response); err != nil {
			return err
		}
	}
	return nil
}

// Name returns "chain".
func (c Chain) Name() string { return "chain" }

// SignedPayload returns the bytes an HSM signs to prove it produced the
// finalize response: the big-endian wallet id followed by the public key.
func SignedPayload(response interfaces.CommandResponse) ([]byte, error) {
	if response.FinalizeWallet == nil {
		return nil, ErrMissingPayload
	}
	payload := make([]byte, 4, 4+len(response.FinalizeWallet.PubKey))
	binary.BigEndian.PutUint32(payload, uint32(response.WalletID))
	return append(payload, response.FinalizeWallet.PubKey...), nil
}

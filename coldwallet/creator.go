package coldwallet

import (
	"errors"
	"fmt"

	"github.com/ruteri/coldwallet-ceremony/interfaces"
	"github.com/ruteri/coldwallet-ceremony/verify"
)

// DefaultThreshold is the number of elements participating in a ceremony
// when none is configured.
const DefaultThreshold = 2

// Config contains configuration parameters for creating a Creator.
type Config struct {
	// Threshold is the exact number of element contributions a finalize
	// request must carry.
	Threshold int

	// Verifier establishes trust in finalize responses. Defaults to verify.Noop.
	Verifier interfaces.ResponseVerifier
}

// Creator builds the requests of a cold wallet ceremony and interprets the
// device's final response. It holds no per-ceremony state and is safe for
// concurrent use.
type Creator struct {
	threshold int
	verifier  interfaces.ResponseVerifier
}

// NewCreator creates a Creator for ceremonies with the configured threshold.
func NewCreator(config Config) (*Creator, error) {
	if config.Threshold < 1 {
		return nil, errors.New("threshold must be at least 1")
	}

	verifier := config.Verifier
	if verifier == nil {
		verifier = verify.Noop{}
	}

	return &Creator{
		threshold: config.Threshold,
		verifier:  verifier,
	}, nil
}

// Threshold returns the number of contributions a finalize request requires.
func (c *Creator) Threshold() int {
	return c.threshold
}

// Verifier returns the verifier applied by Finalize.
func (c *Creator) Verifier() interfaces.ResponseVerifier {
	return c.verifier
}

// Init builds the initialization request for one element. Call it once per
// participating element, each with a distinct token.
func Init(token interfaces.Token, walletID interfaces.WalletID) interfaces.CommandRequest {
	return interfaces.CommandRequest{
		Token:      token,
		WalletID:   walletID,
		InitWallet: &interfaces.InitWalletRequest{},
	}
}

// Init builds the initialization request for one element.
func (c *Creator) Init(token interfaces.Token, walletID interfaces.WalletID) interfaces.CommandRequest {
	return Init(token, walletID)
}

// Combine aggregates every element's encrypted public key into the finalize
// request for the element identified by elementToken.
//
// The checks run in order and each fails with its own error type:
//   - elementToken must be present (*CorrelationError)
//   - no contribution may be absent (*IncompleteContributionError)
//   - the set must hold exactly Threshold entries (*ArityMismatchError)
//
// Keys are ordered by token ascending. The returned request shares no memory
// with contributions.
func (c *Creator) Combine(contributions interfaces.ContributionMap, elementToken interfaces.Token, walletID interfaces.WalletID) (interfaces.CommandRequest, error) {
	if _, found := contributions[elementToken]; !found {
		return interfaces.CommandRequest{}, &CorrelationError{ElementToken: elementToken}
	}

	tokens := contributions.SortedTokens()
	for _, token := range tokens {
		if contributions[token] == nil {
			return interfaces.CommandRequest{}, &IncompleteContributionError{Token: token}
		}
	}

	if len(contributions) != c.threshold {
		return interfaces.CommandRequest{}, &ArityMismatchError{Expected: c.threshold, Got: len(contributions)}
	}

	keys := make([]interfaces.EncryptedPubKey, 0, len(tokens))
	for _, token := range tokens {
		keys = append(keys, contributions[token].Clone())
	}

	return interfaces.CommandRequest{
		Token:    elementToken,
		WalletID: walletID,
		FinalizeWallet: &interfaces.FinalizeWalletRequest{
			EncryptedPubKeys: keys,
		},
	}, nil
}

// Finalize returns the extended public key ("xpub...") carried by the
// device's finalize response, after the configured verifier accepts it.
func (c *Creator) Finalize(response interfaces.CommandResponse) (string, error) {
	if response.FinalizeWallet == nil {
		return "", fmt.Errorf("%w: no finalize payload", interfaces.ErrMalformedResponse)
	}

	if err := c.verifier.Verify(response); err != nil {
		return "", fmt.Errorf("%w (%s): %w", interfaces.ErrUntrustedResponse, c.verifier.Name(), err)
	}

	return string(response.FinalizeWallet.PubKey), nil
}

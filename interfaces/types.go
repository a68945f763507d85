package interfaces

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Token correlates a request to its response and to one participating element.
// Equality is exact string match.
type Token string

// String returns the token as a string.
func (t Token) String() string {
	return string(t)
}

// WalletID identifies the wallet within the target signing system.
type WalletID int32

// EncryptedPubKey is a public key encrypted under element-specific protection.
// A nil value means the element's contribution is absent.
type EncryptedPubKey []byte

// Clone returns an independent copy of the blob. Clone of nil is nil.
func (k EncryptedPubKey) Clone() EncryptedPubKey {
	if k == nil {
		return nil
	}
	return bytes.Clone(k)
}

// ContributionMap maps element tokens to their encrypted public keys.
type ContributionMap map[Token]EncryptedPubKey

// SortedTokens returns the map's tokens in ascending order.
func (m ContributionMap) SortedTokens() []Token {
	tokens := make([]Token, 0, len(m))
	for token := range m {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })
	return tokens
}

// InitWalletRequest asks an element to generate its share for a new wallet.
type InitWalletRequest struct{}

// FinalizeWalletRequest carries every element's encrypted public key.
type FinalizeWalletRequest struct {
	EncryptedPubKeys []EncryptedPubKey
}

// CommandRequest is the envelope delivered to the signing device.
// Exactly one of InitWallet or FinalizeWallet is set.
type CommandRequest struct {
	Token    Token
	WalletID WalletID

	InitWallet     *InitWalletRequest
	FinalizeWallet *FinalizeWalletRequest
}

// Kind names the payload variant carried by the request.
func (r CommandRequest) Kind() string {
	switch {
	case r.InitWallet != nil && r.FinalizeWallet == nil:
		return "init_wallet"
	case r.FinalizeWallet != nil && r.InitWallet == nil:
		return "finalize_wallet"
	default:
		return "invalid"
	}
}

// Validate checks that exactly one payload variant is set.
func (r CommandRequest) Validate() error {
	if r.Kind() == "invalid" {
		return errors.New("command request must carry exactly one payload")
	}
	return nil
}

// FinalizeWalletResponse carries the resulting extended public key.
type FinalizeWalletResponse struct {
	PubKey []byte
}

// CommandResponse is the envelope returned by the signing device.
type CommandResponse struct {
	Token    Token
	WalletID WalletID

	FinalizeWallet *FinalizeWalletResponse

	// Signature is an optional provenance proof over the finalize payload.
	Signature []byte
}

// ParseTokens splits a comma separated list into tokens, dropping blanks.
func ParseTokens(list string) ([]Token, error) {
	var tokens []Token
	seen := make(map[Token]struct{})
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		token := Token(part)
		if _, found := seen[token]; found {
			return nil, fmt.Errorf("duplicate token %q", part)
		}
		seen[token] = struct{}{}
		tokens = append(tokens, token)
	}
	return tokens, nil
}

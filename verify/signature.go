package verify

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/coldwallet-ceremony/interfaces"
)

// Secp256k1Signature verifies that a finalize response was signed by the
// pinned secp256k1 key of the signing device. The signature covers
// keccak256(SignedPayload(response)) and may be either the 65-byte
// recoverable form or the 64-byte compact form.
type Secp256k1Signature struct {
	pubkey *ecdsa.PublicKey
}

// NewSecp256k1Signature creates a verifier pinned to a hex encoded
// compressed (33 bytes) or uncompressed (65 bytes) secp256k1 public key.
func NewSecp256k1Signature(pubkeyHex string) (*Secp256k1Signature, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(pubkeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid hex format: %w", err)
	}

	var pubkey *ecdsa.PublicKey
	switch len(raw) {
	case 33:
		pubkey, err = crypto.DecompressPubkey(raw)
	case 65:
		pubkey, err = crypto.UnmarshalPubkey(raw)
	default:
		return nil, fmt.Errorf("invalid secp256k1 public key length: %d", len(raw))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse secp256k1 public key: %w", err)
	}

	return &Secp256k1Signature{pubkey: pubkey}, nil
}

// Verify checks the response signature against the pinned key.
func (s *Secp256k1Signature) Verify(response interfaces.CommandResponse) error {
	payload, err := SignedPayload(response)
	if err != nil {
		return err
	}
	if len(response.Signature) == 0 {
		return ErrMissingSignature
	}

	digest := crypto.Keccak256(payload)

	switch len(response.Signature) {
	case crypto.SignatureLength:
		recovered, err := crypto.SigToPub(digest, response.Signature)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		if crypto.PubkeyToAddress(*recovered) != crypto.PubkeyToAddress(*s.pubkey) {
			return fmt.Errorf("%w: signed by %s", ErrInvalidSignature, crypto.PubkeyToAddress(*recovered).Hex())
		}
		return nil
	case crypto.SignatureLength - 1:
		if !crypto.VerifySignature(crypto.CompressPubkey(s.pubkey), digest, response.Signature) {
			return ErrInvalidSignature
		}
		return nil
	default:
		return fmt.Errorf("%w: unexpected length %d", ErrInvalidSignature, len(response.Signature))
	}
}

// Name returns "secp256k1-signature".
func (s *Secp256k1Signature) Name() string { return "secp256k1-signature" }

// PEMSignature verifies a response signature made by an ECDSA or Ed25519 key
// given in PEM format. ECDSA signatures are ASN.1 encoded over
// sha256(SignedPayload(response)); Ed25519 signs the payload itself.
type PEMSignature struct {
	pubkey any
}

// NewPEMSignature parses a PKIX public key in PEM format.
func NewPEMSignature(publicKeyPEM []byte) (*PEMSignature, error) {
	block, _ := pem.Decode(publicKeyPEM)
	if block == nil {
		return nil, errors.New("failed to decode public key PEM")
	}

	pubKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	switch pubKey.(type) {
	case *ecdsa.PublicKey, ed25519.PublicKey:
	default:
		return nil, errors.New("public key is neither ECDSA nor ED25519 key")
	}

	return &PEMSignature{pubkey: pubKey}, nil
}

// Verify checks the response signature against the configured key.
func (p *PEMSignature) Verify(response interfaces.CommandResponse) error {
	payload, err := SignedPayload(response)
	if err != nil {
		return err
	}
	if len(response.Signature) == 0 {
		return ErrMissingSignature
	}

	switch pubKey := p.pubkey.(type) {
	case *ecdsa.PublicKey:
		digest := sha256.Sum256(payload)
		if !ecdsa.VerifyASN1(pubKey, digest[:], response.Signature) {
			return ErrInvalidSignature
		}
	case ed25519.PublicKey:
		if !ed25519.Verify(pubKey, payload, response.Signature) {
			return ErrInvalidSignature
		}
	}
	return nil
}

// Name returns "pem-signature".
func (p *PEMSignature) Name() string { return "pem-signature" }

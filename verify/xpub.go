package verify

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/ruteri/coldwallet-ceremony/interfaces"
)

const (
	// XpubVersion is the BIP32 mainnet public version prefix ("xpub").
	XpubVersion uint32 = 0x0488B21E
	// TpubVersion is the BIP32 testnet public version prefix ("tpub").
	TpubVersion uint32 = 0x043587CF

	serializedKeyLen = 78
	checksumLen      = 4
)

// XpubFormat checks that the response carries a well-formed base58check
// serialized extended public key. It checks form only, not provenance.
type XpubFormat struct {
	// Versions lists accepted version prefixes. Defaults to xpub and tpub.
	Versions []uint32
}

// Verify decodes the public key and validates its checksum, length, version
// and key prefix.
func (x XpubFormat) Verify(response interfaces.CommandResponse) error {
	if response.FinalizeWallet == nil {
		return ErrMissingPayload
	}
	_, err := DecodeExtendedKey(string(response.FinalizeWallet.PubKey), x.versions()...)
	return err
}

// Name returns "xpub-format".
func (x XpubFormat) Name() string { return "xpub-format" }

func (x XpubFormat) versions() []uint32 {
	if len(x.Versions) == 0 {
		return []uint32{XpubVersion, TpubVersion}
	}
	return x.Versions
}

// ExtendedKey holds the fields of a serialized BIP32 public key.
type ExtendedKey struct {
	Version           uint32
	Depth             uint8
	ParentFingerprint [4]byte
	ChildNumber       uint32
	ChainCode         [32]byte
	PubKey            [33]byte
}

// DecodeExtendedKey parses a base58check serialized extended public key whose
// version is one of versions.
func DecodeExtendedKey(encoded string, versions ...uint32) (*ExtendedKey, error) {
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid base58 encoding: %w", err)
	}

	if len(raw) != serializedKeyLen+checksumLen {
		return nil, fmt.Errorf("invalid extended key length: %d", len(raw))
	}

	payload, checksum := raw[:serializedKeyLen], raw[serializedKeyLen:]
	if !bytes.Equal(checksum, doubleSHA256(payload)[:checksumLen]) {
		return nil, fmt.Errorf("invalid extended key checksum")
	}

	key := &ExtendedKey{
		Version:     binary.BigEndian.Uint32(payload[0:4]),
		Depth:       payload[4],
		ChildNumber: binary.BigEndian.Uint32(payload[9:13]),
	}
	copy(key.ParentFingerprint[:], payload[5:9])
	copy(key.ChainCode[:], payload[13:45])
	copy(key.PubKey[:], payload[45:78])

	accepted := false
	for _, v := range versions {
		if key.Version == v {
			accepted = true
			break
		}
	}
	if !accepted {
		return nil, fmt.Errorf("unsupported extended key version %08x", key.Version)
	}

	if key.PubKey[0] != 0x02 && key.PubKey[0] != 0x03 {
		return nil, fmt.Errorf("extended key does not hold a compressed public key")
	}

	return key, nil
}

// Encode serializes the key as base58check.
func (k *ExtendedKey) Encode() string {
	payload := make([]byte, serializedKeyLen, serializedKeyLen+checksumLen)
	binary.BigEndian.PutUint32(payload[0:4], k.Version)
	payload[4] = k.Depth
	copy(payload[5:9], k.ParentFingerprint[:])
	binary.BigEndian.PutUint32(payload[9:13], k.ChildNumber)
	copy(payload[13:45], k.ChainCode[:])
	copy(payload[45:78], k.PubKey[:])
	payload = append(payload, doubleSHA256(payload)[:checksumLen]...)
	return base58.Encode(payload)
}

func doubleSHA256(data []byte) []byte {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second[:]
}

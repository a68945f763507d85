// Package verify provides interfaces.ResponseVerifier implementations used to
// decide whether a signing device's finalize response can be trusted.
//
// Noop accepts everything and is the default, which keeps the missing
// provenance check visible at the call site. XpubFormat checks that the
// returned key is a well-formed base58check extended public key.
// Secp256k1Signature and PEMSignature check a signature made by the signing
// device's HSM over SignedPayload(response). Chain combines several.
package verify

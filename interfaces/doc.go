// Package interfaces defines the types shared by every component of the
// cold wallet ceremony, separating them from their implementations.
//
// # Ceremony Types
//
//   - Token: correlates a request, its response and one participating element
//   - WalletID: identifies the wallet inside the signing system
//   - EncryptedPubKey: an element's public key under element-specific protection
//   - ContributionMap: the encrypted public keys collected for one ceremony
//   - CommandRequest / CommandResponse: envelopes exchanged with the signing device
//
// # Verification
//
// ResponseVerifier decides whether a finalize response can be trusted before
// its extended public key is used.
//
// # Storage Interfaces
//
// StorageBackend provides content-addressed archival of ceremony artifacts
// across file, S3, IPFS and Vault backends. StorageBackendFactory creates
// backends from location URIs.
//
// # Errors
//
// Validation failures are reported through the sentinel errors
// ErrCorrelation, ErrIncompleteContribution and ErrArityMismatch so callers
// can tell them apart with errors.Is.
package interfaces

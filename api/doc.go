// Package api defines the wire formats exchanged during a cold wallet
// ceremony and the coordinator's request and response bodies.
//
// Command requests and responses travel between operators and the signing
// device as JSON files. Byte fields are base64 encoded and the finalize
// request lists encrypted public keys in token-ascending order, so the same
// contribution set always produces the same file.
package api

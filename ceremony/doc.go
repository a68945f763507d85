// Package ceremony tracks wallet creation ceremonies on the coordinator.
//
// A Ceremony issues init requests under element tokens, collects each
// element's encrypted public key, builds the finalize request through a
// coldwallet.Creator and records the resulting extended public key. A
// Registry holds the ceremonies of one coordinator, and an Archive stores
// every exchanged message in a content-addressed storage backend.
package ceremony

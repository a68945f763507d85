// Package ceremonyhandler implements the coordinator's HTTP API and a client for it.
//
// The coordinator drives a wallet creation ceremony for operators who move
// messages between elements and the signing device:
//
//  1. POST /api/ceremony issues one init request per element
//  2. each element's encrypted public key is posted to
//     /api/ceremony/{id}/contribution/{token}
//  3. GET /api/ceremony/{id}/finalize/{token} combines the contributions
//     into the finalize request carried by that element
//  4. the device's finalize response is posted to /api/ceremony/{id}/result
//     and the wallet's extended public key is returned
//
// Validation failures from the combine and finalize steps are returned as
// api.ErrorResponse with a machine readable kind.
package ceremonyhandler

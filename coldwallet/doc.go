// Package coldwallet builds the requests of an offline threshold cold wallet
// ceremony and interprets the signing device's final response.
//
// A ceremony has two offline steps carried to and from an air-gapped
// signing device:
//
//  1. Init: one InitWallet request per participating element, each stamped
//     with a distinct token. Every element answers with its public key
//     encrypted under element-specific protection.
//  2. Finalize: once every element has answered, Combine aggregates the
//     encrypted public keys into a single FinalizeWallet request. The device
//     answers with the wallet's extended public key, which Finalize extracts.
//
// Combine is the only place where multi-party correctness is enforced. It
// refuses to build a request unless the selected element token was
// collected, every contribution is present, and the set holds exactly the
// configured threshold of contributions:
//
//	creator, err := coldwallet.NewCreator(coldwallet.Config{Threshold: 3})
//	if err != nil {
//	    return err
//	}
//	req, err := creator.Combine(contributions, "b", 42)
//	var arity *coldwallet.ArityMismatchError
//	if errors.As(err, &arity) && arity.TooMany() {
//	    // an unexpected element attempted to join
//	}
//
// Finalize runs the configured interfaces.ResponseVerifier before trusting
// the response. The default verifier accepts everything; see package verify
// for verifiers that check the key format or an HSM provenance signature.
package coldwallet

// Command demo-gateway runs the deterministic encryption engine over HTTP.
//
// It backs demos and integration setups: clients encrypt bid values here,
// the marketplace verifies proofs here, and sellers submit signed
// decryption authorizations here. Values never leave the engine in the
// clear over the decrypt path; results are sealed to the authorization's
// ephemeral public key and opened client-side.
package main

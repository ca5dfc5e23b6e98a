// Package gateway provides implementations of the protocol.Gateway
// capability: a deterministic in-process mock for tests and demos, and an
// HTTP client for deployments that run the encryption engine as a separate
// service.
//
// The marketplace core treats the engine as a black box. Everything here is
// plumbing around that boundary; no homomorphic math happens in this module.
package gateway

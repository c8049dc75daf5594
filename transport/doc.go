// Package transport is the network collaborator used by the client to
// dispatch requests.
//
// A [Transport] accepts a fully built [Request] and returns the raw
// [Response] or a transport-level error (timeout, DNS, TLS, connectivity).
// Non-2xx statuses are not errors at this layer; interpreting them belongs
// to the client's response pipeline.
package transport

// Package signature computes the per-request signatures attached to signed
// calls against the remote service.
//
// # Design
//
// [Sign] is a pure function: a keyed HMAC-SHA256 over a canonical
// serialization of the request parameters (keys sorted, each key followed by
// its value), rendered as "<version>:<lowercase hex>". It performs no I/O and
// is safe for concurrent use without synchronization.
//
// [RequestToken] wraps per-request claims (signing context, request id,
// issue and expiry time) in an HS256 token keyed by the same secret.
//
// # What this package must NOT do
//
//   - Cache signatures. Reuse across requests is owned by the token cache.
//   - Import goSnap or any internal package.
package signature

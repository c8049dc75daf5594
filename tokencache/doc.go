// Package tokencache stores signing tokens issued for previous requests so
// that later requests sharing a signing context can reuse them.
//
// # Design
//
// [Cache] is the capability set every backend implements: Get, Set and
// Clear. At most one live entry exists per key and writes overwrite.
// [Memory] is the default in-process backend; [Redis] persists entries in
// Redis with a TTL and tracks its keys in an index set so Clear removes
// exactly the entries it wrote.
//
// # Architecture boundaries
//
// The owning client decides when to clear: on sign-out, and before every
// sign-in or session restoration. Backends never clear themselves.
package tokencache

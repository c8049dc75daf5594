// Package internal contains helper utilities that are intentionally private to goSnap,
// such as request and media identifier generation.
//
// # Sub-packages
//
//   - flows: pure-function orchestrators for Client operations
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSnap API.
//   - Be imported by any package outside the goSnap module.
package internal

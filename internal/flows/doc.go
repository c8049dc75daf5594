// Package flows contains pure-function orchestrators for every Client operation.
//
// Each flow function (RunExecute, ParseSignIn, NormalizePhone, etc.) accepts
// typed inputs or a dependency struct and returns results without side-effects
// beyond those dependencies. The root Client owns state and maps flow failure
// kinds onto its public error kinds.
//
// # Architecture boundaries
//
// Flow functions coordinate the signature engine, token cache, transport and
// normalizer. They do NOT own any of these resources; ownership stays with
// the Client.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSnap (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency interfaces.
package flows

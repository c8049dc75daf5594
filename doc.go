// Package goSnap is a client for a proprietary messaging service whose
// protocol core is request signing and session management.
//
// A [Client] is built with [Builder.Build] and is safe for concurrent use.
// Each Client owns one session and one signing-token cache. Every operation
// returns (T, error); errors are [*Error] values classified by [ErrorKind]
// and match the kind sentinels through errors.Is.
//
// # Architecture boundaries
//
// goSnap is the public surface: Client lifecycle, the request pipeline,
// [Registration], and snap operations. Request building, signing, and
// response interpretation live in internal/flows as pure functions. The
// signature, tokencache, session, and transport packages are the leaf
// building blocks and never import goSnap.
//
// # What this package must NOT do
//
//   - Retry requests. Retry policy belongs to the caller.
//   - Persist sessions. Callers store Session values and restore them with
//     [Client.RestoreSession].
//   - Log passwords, auth tokens, or the API secret.
//
// # Concurrency contract
//
// Session and cache mutations are serialized per Client. A sign-in, restore,
// or update that completes after a newer lifecycle change is discarded with
// a KindCanceled error wrapping [ErrSuperseded]. [Go] wraps any operation in
// a cancellable [Call] handle.
package goSnap

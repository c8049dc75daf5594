// Package session holds the authentication snapshot owned by a client:
// identity, auth token, device tokens, account details refreshed by
// update-session calls, and the derived screen geometry reported to the
// remote service.
//
// Session values are plain data. The owning client serializes mutation;
// copies returned to callers are independent.
package session

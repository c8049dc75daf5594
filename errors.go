package goSnap

import (
	"errors"
	"strings"
)

// ErrorKind classifies every failure returned by Client operations.
type ErrorKind int

const (
	// KindUnknown is reported by KindOf for errors not produced by this package.
	KindUnknown ErrorKind = iota
	// KindPreconditionViolation marks caller misuse detected before any I/O.
	KindPreconditionViolation
	// KindNotAuthenticated marks an operation that requires a signed-in session.
	KindNotAuthenticated
	// KindNetwork marks a transport-level failure. Callers may retry.
	KindNetwork
	// KindRemoteRejected marks a well-formed failure response from the service.
	KindRemoteRejected
	// KindMissingCredentials marks a signed request without API credentials.
	KindMissingCredentials
	// KindCanceled marks an operation canceled through its context or Call handle.
	KindCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case KindPreconditionViolation:
		return "precondition_violation"
	case KindNotAuthenticated:
		return "not_authenticated"
	case KindNetwork:
		return "network"
	case KindRemoteRejected:
		return "remote_rejected"
	case KindMissingCredentials:
		return "missing_credentials"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

var (
	// ErrPreconditionViolation matches every KindPreconditionViolation error.
	ErrPreconditionViolation = errors.New("precondition violation")
	// ErrNotAuthenticated matches every KindNotAuthenticated error.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNetwork matches every KindNetwork error.
	ErrNetwork = errors.New("network failure")
	// ErrRemoteRejected matches every KindRemoteRejected error.
	ErrRemoteRejected = errors.New("remote rejected request")
	// ErrMissingCredentials matches every KindMissingCredentials error.
	ErrMissingCredentials = errors.New("missing api credentials")
	// ErrCanceled matches every KindCanceled error.
	ErrCanceled = errors.New("operation canceled")
)

var (
	// ErrEmptyCredentials is wrapped when a sign-in or restore is missing input.
	ErrEmptyCredentials = errors.New("username and secret must not be empty")
	// ErrSessionExpired is wrapped when a restored auth token is outside the freshness window.
	ErrSessionExpired = errors.New("auth token is outside the restore freshness window")
	// ErrInvalidTimer is wrapped when a snap timer is not strictly positive.
	ErrInvalidTimer = errors.New("snap timer must be greater than zero")
	// ErrNoRecipients is wrapped when a snap has no recipients.
	ErrNoRecipients = errors.New("snap requires at least one recipient")
	// ErrEmptyMedia is wrapped when a snap blob carries no data.
	ErrEmptyMedia = errors.New("snap media is empty")
	// ErrMissingSnapID is wrapped when a snap reference has no identifier.
	ErrMissingSnapID = errors.New("snap identifier is empty")
	// ErrRegistrationOrder is wrapped when a registration step is invoked out of order.
	ErrRegistrationOrder = errors.New("registration step out of order")
	// ErrRegistrationBusy is wrapped when a registration step overlaps another.
	ErrRegistrationBusy = errors.New("registration step already in flight")
	// ErrEmailMismatch is wrapped when registerUsername names a different email.
	ErrEmailMismatch = errors.New("email does not match the registered email")
	// ErrSuperseded is wrapped when a lifecycle change lands after a newer one.
	ErrSuperseded = errors.New("superseded by a newer session change")
	// ErrClientNotReady is returned by operations on a nil Client.
	ErrClientNotReady = errors.New("client not initialized")
)

// Error is the structured failure returned by Client operations.
type Error struct {
	Kind   ErrorKind
	Op     string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("gosnap")
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	switch {
	case e.Detail != "":
		b.WriteString(": ")
		b.WriteString(e.Detail)
	case e.Err != nil:
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinel of e, so errors.Is(err, ErrRemoteRejected)
// holds for every remote rejection.
func (e *Error) Is(target error) bool {
	return target != nil && target == kindSentinel(e.Kind)
}

// KindOf returns the ErrorKind carried by err, or KindUnknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func kindSentinel(k ErrorKind) error {
	switch k {
	case KindPreconditionViolation:
		return ErrPreconditionViolation
	case KindNotAuthenticated:
		return ErrNotAuthenticated
	case KindNetwork:
		return ErrNetwork
	case KindRemoteRejected:
		return ErrRemoteRejected
	case KindMissingCredentials:
		return ErrMissingCredentials
	case KindCanceled:
		return ErrCanceled
	default:
		return nil
	}
}

func newError(kind ErrorKind, op string, err error) *Error {
	e := &Error{Kind: kind, Op: op, Err: err}
	if err != nil {
		e.Detail = err.Error()
	}
	return e
}

func preconditionError(op string, err error) *Error {
	return newError(KindPreconditionViolation, op, err)
}

package session

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoIssuedAt is returned when an auth token carries no readable issue time.
var ErrNoIssuedAt = errors.New("auth token has no issued-at claim")

// Session is the authentication state of one signed-in account.
type Session struct {
	// Username is always lowercase.
	Username      string
	AuthToken     string
	DeviceToken1i string
	DeviceToken1v string
	IssuedAt      time.Time

	Account Account
}

// Account carries account details returned by sign-in and update-session.
type Account struct {
	Email        string
	MobileNumber string
	Score        int
	Received     int
	Sent         int
	UpdatedAt    time.Time
}

// New returns a session for username with the given auth token.
func New(username, authToken string, issuedAt time.Time) Session {
	return Session{
		Username:  NormalizeUsername(username),
		AuthToken: authToken,
		IssuedAt:  issuedAt,
	}
}

// NormalizeUsername trims and lowercases a username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Valid reports whether the session carries an identity and auth token.
func (s Session) Valid() bool {
	return s.Username != "" && s.AuthToken != ""
}

// Fresh reports whether the auth token was issued within window of now.
// A zero IssuedAt is never fresh.
func (s Session) Fresh(now time.Time, window time.Duration) bool {
	if s.IssuedAt.IsZero() || window <= 0 {
		return false
	}
	if s.IssuedAt.After(now) {
		return false
	}
	return now.Sub(s.IssuedAt) < window
}

// WithDeviceTokens returns s with the device token pair replaced. Empty
// values keep the current token.
func (s Session) WithDeviceTokens(token1i, token1v string) Session {
	if token1i != "" {
		s.DeviceToken1i = token1i
	}
	if token1v != "" {
		s.DeviceToken1v = token1v
	}
	return s
}

// IssuedAtFromToken reads the iat claim of a JWT-shaped auth token without
// verifying its signature. Opaque tokens yield ErrNoIssuedAt.
func IssuedAtFromToken(authToken string) (time.Time, error) {
	if strings.Count(authToken, ".") != 2 {
		return time.Time{}, ErrNoIssuedAt
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(authToken, &claims); err != nil {
		return time.Time{}, ErrNoIssuedAt
	}
	if claims.IssuedAt == nil {
		return time.Time{}, ErrNoIssuedAt
	}
	return claims.IssuedAt.Time, nil
}

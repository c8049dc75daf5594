package signature

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RequestClaims are the claims carried by a request token.
type RequestClaims struct {
	Context   string `json:"ctx"`
	Signature string `json:"sig,omitempty"`
	jwt.RegisteredClaims
}

// RequestToken issues an HS256 token binding a request id and signing
// context to the given signature. The token expires ttl after issuedAt.
func RequestToken(secret, signingContext, sig, requestID string, issuedAt time.Time, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	if ttl <= 0 {
		return "", errors.New("signature: invalid request token ttl")
	}

	claims := RequestClaims{
		Context:   signingContext,
		Signature: sig,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        requestID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseRequestToken verifies a token produced by RequestToken and returns
// its claims.
func ParseRequestToken(token, secret string, now time.Time) (*RequestClaims, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	claims := &RequestClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithIssuedAt(),
	)
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

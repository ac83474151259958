// Package auth verifies bearer tokens issued by the identity provider.
// The service never mints tokens itself; it only checks the signature and
// extracts the external user id from the subject claim.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken   = errors.New("auth: invalid token")
	ErrMissingSubject = errors.New("auth: token has no subject")
)

// Verifier validates HS256-signed identity tokens.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for the shared signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify checks the token signature and expiry and returns the external
// user id carried in the subject claim.
func (v *Verifier) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", ErrMissingSubject
	}
	return subject, nil
}

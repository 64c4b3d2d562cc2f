package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Authority issues and verifies signed access tokens.
//
// Tokens are HS256 JWTs carrying only a subject (user id) and expiry.
// Verification is stateless: a valid signature plus an unexpired claim
// is enough, and the caller is expected to re-resolve the user against
// the database so disabled or deleted accounts fail closed.
type Authority struct {
	secret []byte
	ttl    time.Duration
}

// NewAuthority creates a token authority with the given signing secret
// and token lifetime.
func NewAuthority(secret string, ttl time.Duration) *Authority {
	return &Authority{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue creates a signed access token for the given user id.
// Returns the compact token string and its expiry time.
func (a *Authority) Issue(userID string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(a.ttl)

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify validates a token and returns the user id it was issued for.
//
// Every failure mode (bad signature, expired, malformed, missing
// claims) returns ErrInvalidToken. Callers must not distinguish
// between them.
func (a *Authority) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(_ *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return claims.Subject, nil
}

// TTL returns the configured token lifetime.
func (a *Authority) TTL() time.Duration {
	return a.ttl
}

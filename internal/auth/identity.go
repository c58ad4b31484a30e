// Package auth verifies the bearer identity attached to requests and
// connections, and issues access tokens for the external SFU.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

var ErrNoSecret = errors.New("jwt secret is empty")

// Verifier checks HS256 identity tokens. The subject claim is the user id.
type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(secret, issuer string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &Verifier{secret: []byte(secret), issuer: issuer}, nil
}

// Verify returns the identity carried by raw. Every failure wraps
// domain.ErrUnauthorized.
func (v *Verifier) Verify(raw string) (domain.UserID, error) {
	id, _, err := v.Parse(raw)
	return id, err
}

// Parse is Verify that also reports the token expiry. The time is zero for
// tokens without an exp claim.
func (v *Verifier) Parse(raw string) (domain.UserID, time.Time, error) {
	if raw == "" {
		return "", time.Time{}, domain.ErrUnauthorized
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) { return v.secret, nil }, opts...)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	id := domain.UserID(claims.Subject)
	if err := id.Validate(); err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return id, exp, nil
}

// Issue mints a token for user. Used by tooling and tests; production
// tokens come from the identity provider sharing the secret.
func (v *Verifier) Issue(user domain.UserID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  string(user),
		Issuer:   v.issuer,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainsession "github.com/NordCoder/Sugu/internal/domain/session"
)

// DefaultSkew treats a token with less than a second left as already expired.
const DefaultSkew = time.Second

var unverified = jwt.NewParser()

// ExpiresAt reads the exp claim without checking the signature.
// The client never holds the signing key; the server stays the authority.
// Only exp is interpreted, other claims may have any shape.
func ExpiresAt(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := unverified.ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", domainsession.ErrMalformedToken, err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", domainsession.ErrMalformedToken, err)
	}
	if exp == nil {
		return time.Time{}, fmt.Errorf("%w: missing exp claim", domainsession.ErrMalformedToken)
	}
	return exp.Time, nil
}

// Expired is true when the token cannot be decoded or expires within skew of now.
func Expired(token string, now time.Time, skew time.Duration) bool {
	exp, err := ExpiresAt(token)
	if err != nil {
		return true
	}
	return exp.Sub(now) < skew
}

// Mask keeps tokens out of logs.
func Mask(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

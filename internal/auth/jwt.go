// Package auth checks the bearer tokens of calling services.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the issuer claim of service tokens.
const Issuer = "mithril-content"

// DefaultTokenTTL is the lifetime of tokens minted without an explicit TTL.
const DefaultTokenTTL = time.Hour

// Claims holds the JWT claims of a service token. The calling service is
// stored in the standard "sub" (Subject) field.
type Claims struct {
	jwt.RegisteredClaims
}

// Caller returns the name of the calling service.
func (c *Claims) Caller() string { return c.Subject }

// CreateServiceToken creates a signed HMAC-SHA256 token for caller that
// expires after ttl. A ttl of zero uses DefaultTokenTTL.
func CreateServiceToken(caller, secret string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing service token: %w", err)
	}
	return signed, nil
}

// ValidateServiceToken parses and validates tokenString with the HMAC
// secret. Tokens from another issuer or without a subject are rejected.
func ValidateServiceToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parsing service token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("invalid service token claims")
	}

	return claims, nil
}

package access

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// jwtClaims is the minimal claim set test fixtures mint: a "webid" claim
// plus standard registered claims, read back by middleware that resolves an
// identity from a bearer token.
type jwtClaims struct {
	WebID string   `json:"webid"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// FixtureSigner mints bearer-token-shaped JWTs carrying Credentials, for use
// in Access-Controlled-layer tests. Authentication itself (verifying a real
// OIDC-issued token) stays an external collaborator; this is deliberately a
// symmetric-key, test-only signer.
type FixtureSigner struct {
	key []byte
}

// NewFixtureSigner returns a signer using key to sign and verify tokens. Use
// a fixed test key; this is not a production credential store.
func NewFixtureSigner(key []byte) FixtureSigner {
	return FixtureSigner{key: key}
}

// Mint signs a JWT asserting creds, valid for ttl from now.
func (s FixtureSigner) Mint(creds Credentials, ttl time.Duration) (string, error) {
	claims := jwtClaims{
		WebID: creds.WebID,
		Roles: creds.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.key)
}

// Verify parses a token minted by Mint and returns the Credentials it asserts.
func (s FixtureSigner) Verify(tokenString string) (Credentials, error) {
	var claims jwtClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("access: unexpected signing method %v", t.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		return Credentials{}, fmt.Errorf("access: invalid fixture token: %w", err)
	}
	return Credentials{WebID: claims.WebID, Roles: claims.Roles}, nil
}

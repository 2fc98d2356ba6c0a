// internal/pkg/jwt/generator.go
package jwt

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

// Generator mints portal tokens for local development and tests. Production
// tokens are issued by the backend API.
type Generator struct {
	priv     *rsa.PrivateKey
	issuer   string
	audience string
	kid      string // key id for rotation
	Ttl      time.Duration
}

func NewGenerator(priv *rsa.PrivateKey, issuer, audience, kid string, ttl time.Duration) *Generator {
	return &Generator{
		priv:     priv,
		issuer:   issuer,
		audience: audience,
		kid:      kid,
		Ttl:      ttl,
	}
}

// Generate signs the payload. Issuer, audience, iat, exp and jti are filled
// in when the caller left them empty.
func (g *Generator) Generate(payload Payload) (string, string, error) {
	if g.priv == nil {
		return "", "", fmt.Errorf("jwt generator has nil private key")
	}

	now := time.Now()

	if payload.Issuer == "" {
		payload.Issuer = g.issuer
	}
	if len(payload.Audience) == 0 && g.audience != "" {
		payload.Audience = jwt.ClaimStrings{g.audience}
	}
	if payload.IssuedAt == nil {
		payload.IssuedAt = jwt.NewNumericDate(now)
	}
	if payload.ExpiresAt == nil {
		payload.ExpiresAt = jwt.NewNumericDate(now.Add(g.Ttl))
	}
	if payload.ID == "" {
		payload.ID = ulid.Make().String()
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, &payload)
	if g.kid != "" {
		tok.Header["kid"] = g.kid
	}

	signed, err := tok.SignedString(g.priv)
	return signed, payload.ID, err
}

// GenerateExpiringAt signs the payload with a fixed expiry.
func (g *Generator) GenerateExpiringAt(payload Payload, expiresAt time.Time) (string, error) {
	payload.ExpiresAt = jwt.NewNumericDate(expiresAt)
	signed, _, err := g.Generate(payload)
	return signed, err
}

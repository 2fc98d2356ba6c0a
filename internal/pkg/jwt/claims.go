// internal/pkg/jwt/claims.go
package jwt

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Payload is the decoded middle segment of a portal bearer token.
type Payload struct {
	Subject         SubjectID `json:"sub"`
	Name            string    `json:"name"`
	Role            string    `json:"role"`
	ServiceCenterID *int64    `json:"serviceCenterId,omitempty"`
	Email           string    `json:"email,omitempty"`
	MobileNumber    string    `json:"mobileNumber,omitempty"`
	AuthProvider    string    `json:"authProvider,omitempty"`
	IsActive        *bool     `json:"isActive,omitempty"`
	Permissions     []string  `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// SubjectID accepts both string and numeric "sub" claims.
type SubjectID string

func (s *SubjectID) UnmarshalJSON(b []byte) error {
	*s = SubjectID(looseString(b))
	return nil
}

// UnmarshalJSON decodes the claim set leniently. Backends send optional
// claims in several shapes ("permissions" as one string, "isActive" as
// "True", "serviceCenterId" as "12"); values of an unusable type are dropped
// instead of failing the token. Only "exp" must have its registered type.
func (p *Payload) UnmarshalJSON(b []byte) error {
	type plain Payload
	var aux struct {
		*plain
		Subject         json.RawMessage `json:"sub"`
		Name            json.RawMessage `json:"name"`
		Role            json.RawMessage `json:"role"`
		ServiceCenterID json.RawMessage `json:"serviceCenterId"`
		Email           json.RawMessage `json:"email"`
		MobileNumber    json.RawMessage `json:"mobileNumber"`
		AuthProvider    json.RawMessage `json:"authProvider"`
		IsActive        json.RawMessage `json:"isActive"`
		Permissions     json.RawMessage `json:"permissions"`
		Issuer          json.RawMessage `json:"iss"`
		Audience        json.RawMessage `json:"aud"`
		NotBefore       json.RawMessage `json:"nbf"`
		IssuedAt        json.RawMessage `json:"iat"`
		ID              json.RawMessage `json:"jti"`
	}
	aux.plain = (*plain)(p)
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	p.Subject = SubjectID(looseString(aux.Subject))
	p.Name = looseString(aux.Name)
	p.Role = looseString(aux.Role)
	p.ServiceCenterID = looseInt64(aux.ServiceCenterID)
	p.Email = looseString(aux.Email)
	p.MobileNumber = looseString(aux.MobileNumber)
	p.AuthProvider = looseString(aux.AuthProvider)
	p.IsActive = looseBool(aux.IsActive)
	p.Permissions = looseStrings(aux.Permissions)

	p.Issuer = looseString(aux.Issuer)
	if aud := looseStrings(aux.Audience); aud != nil {
		p.Audience = jwt.ClaimStrings(aud)
	}
	p.NotBefore = looseDate(aux.NotBefore)
	p.IssuedAt = looseDate(aux.IssuedAt)
	p.ID = looseString(aux.ID)
	return nil
}

// looseString returns a JSON string, or the literal text of a JSON number.
// Anything else yields "".
func looseString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func looseInt64(raw json.RawMessage) *int64 {
	s := strings.TrimSpace(looseString(raw))
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func looseBool(raw json.RawMessage) *bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return &b
	}
	s := strings.TrimSpace(looseString(raw))
	if s == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.ToLower(s))
	if err != nil {
		return nil
	}
	return &b
}

// looseStrings accepts a list or a single string. Non-string list items are
// skipped; an explicit empty list stays empty rather than nil.
func looseStrings(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	if raw[0] != '[' {
		if s := looseString(raw); s != "" {
			return []string{s}
		}
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := looseString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func looseDate(raw json.RawMessage) *jwt.NumericDate {
	s := strings.TrimSpace(looseString(raw))
	if s == "" {
		return nil
	}
	var d jwt.NumericDate
	if err := d.UnmarshalJSON([]byte(s)); err != nil {
		return nil
	}
	return &d
}

// HasExpiry reports whether the payload carries an "exp" claim.
func (p *Payload) HasExpiry() bool {
	return p.ExpiresAt != nil
}

// ExpiresAtUnix returns the expiry as Unix seconds, 0 when absent.
func (p *Payload) ExpiresAtUnix() int64 {
	if p.ExpiresAt == nil {
		return 0
	}
	return p.ExpiresAt.Unix()
}

// SecondsUntilExpiry returns exp minus now in seconds. Negative once expired.
func (p *Payload) SecondsUntilExpiry(now time.Time) float64 {
	return float64(p.ExpiresAtUnix()) - float64(now.UnixNano())/float64(time.Second)
}

// HasPermission checks if the payload carries a specific permission
func (p *Payload) HasPermission(permission string) bool {
	for _, perm := range p.Permissions {
		if perm == permission {
			return true
		}
	}
	return false
}

// internal/pkg/jwt/decoder.go
package jwt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidTokenFormat is the only error Decode returns (possibly wrapped).
var ErrInvalidTokenFormat = errors.New("invalid token format")

// Only DecodeSegment is used; nothing here verifies signatures. The backend
// is the verifier for tokens it issues.
var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// Some issuers emit the standard base64 alphabet; both are accepted.
var urlAlphabet = strings.NewReplacer("+", "-", "/", "_")

// Decode extracts the payload segment of a three-part token and parses it as
// a JSON object. The header and signature segments are ignored.
func Decode(token string) (*Payload, error) {
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: missing payload segment", ErrInvalidTokenFormat)
	}

	raw, err := segmentParser.DecodeSegment(urlAlphabet.Replace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTokenFormat, err)
	}

	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("%w: payload is not valid UTF-8", ErrInvalidTokenFormat)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: payload is not a JSON object", ErrInvalidTokenFormat)
	}

	var payload Payload
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTokenFormat, err)
	}

	return &payload, nil
}

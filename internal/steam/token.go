package steam

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// ValidRefreshToken reports whether s has the JWT-like shape of a Steam
// refresh token: three dot-separated segments whose middle segment
// base64url-decodes to a JSON object. Malformed tokens are never handed
// to the network client; the login flow falls back to interactive
// credentials instead.
func ValidRefreshToken(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}

	payload, err := decodeSegment(parts[1])
	if err != nil {
		return false
	}

	var obj map[string]json.RawMessage
	return json.Unmarshal(payload, &obj) == nil
}

// decodeSegment accepts both unpadded and padded base64url.
func decodeSegment(s string) ([]byte, error) {
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.URLEncoding.DecodeString(s)
}

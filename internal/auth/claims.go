package auth

import (
	"strings"
	"time"
)

// AccessClaims represents the claims stored in a PASETO access token.
// These are encrypted in v4.local tokens, so they're not readable without the key.
type AccessClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	IsRoot bool   `json:"is_root"`

	// Standard PASETO claims
	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// ClientInfo identifies the client that opened a session.
// It is optional and stored on the session for display in the session list.
type ClientInfo struct {
	Name    string `json:"name"`    // DevFlow Web, DevFlow CLI
	Version string `json:"version"` // 1.2.0
}

const maxClientFieldLength = 64

// Sanitized returns a copy with fields trimmed and truncated to storable lengths.
func (c ClientInfo) Sanitized() ClientInfo {
	return ClientInfo{
		Name:    clampField(c.Name),
		Version: clampField(c.Version),
	}
}

func clampField(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxClientFieldLength {
		s = s[:maxClientFieldLength]
	}
	return s
}

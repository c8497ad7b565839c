package domain

import "time"

// User represents an authenticated user account in the system.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"password_hash,omitempty"` // Stored hashed, filter from API responses
	DisplayName    string    `json:"display_name"`
	IsRoot         bool      `json:"is_root"`
	AvatarColor    string    `json:"avatar_color"`               // Deterministic fallback color
	AvatarHash     string    `json:"avatar_hash,omitempty"`      // SHA-256 of the uploaded image, for cache validation
	AvatarBlurHash string    `json:"avatar_blur_hash,omitempty"` // Placeholder for clients while the image loads
	LastLoginAt    time.Time `json:"last_login_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Touch updates the UpdatedAt timestamp.
func (u *User) Touch() {
	u.UpdatedAt = time.Now()
}

// Name returns the best available name to display for the user.
// Prefers DisplayName, falls back to email.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

// Session represents an active user session with a refresh token.
// Each device gets its own session.
type Session struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	RefreshTokenHash string    `json:"refresh_token_hash,omitempty"` // Stored hashed, filter from API responses
	ExpiresAt        time.Time `json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
	LastSeenAt       time.Time `json:"last_seen_at"`
	IPAddress        string    `json:"ip_address,omitempty"`
	ClientName       string    `json:"client_name,omitempty"`
	ClientVersion    string    `json:"client_version,omitempty"`
}

// Touch updates the session's last seen timestamp.
func (s *Session) Touch() {
	s.LastSeenAt = time.Now()
}

// IsExpired checks if the session has passed its expiration time.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

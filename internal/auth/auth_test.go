package auth

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/devflowapp/devflow-server/internal/domain"
	"github.com/stretchr/testify/require"
)

func testKey(b byte) []byte {
	return bytes.Repeat([]byte{b}, keyBytesSize)
}

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$"))

	ok, err := VerifyPassword(hash, "correct horse battery staple")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = VerifyPassword(hash, "wrong password")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHashPassword_RejectsEmptyAndOversized(t *testing.T) {
	_, err := HashPassword("")
	require.Error(t, err)

	_, err = HashPassword(strings.Repeat("a", maxPasswordLength+1))
	require.Error(t, err)
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	ok, err := VerifyPassword("not-an-argon-hash", "whatever")
	require.NoError(t, err)
	require.False(t, ok)

	// Valid shape, tampered digest.
	hash, err := HashPassword("secret")
	require.NoError(t, err)
	tampered := hash[:len(hash)-2] + "zz"
	ok, err = VerifyPassword(tampered, "secret")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyPassword_OversizedInput(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)

	ok, err := VerifyPassword(hash, strings.Repeat("a", maxPasswordLength+1))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNewTokenService_KeyLength(t *testing.T) {
	_, err := NewTokenService([]byte("too short"), time.Minute, time.Hour)
	require.Error(t, err)

	svc, err := NewTokenService(testKey(0x01), time.Minute, time.Hour)
	require.NoError(t, err)
	require.Equal(t, time.Minute, svc.AccessTokenDuration())
	require.Equal(t, time.Hour, svc.RefreshTokenDuration())
}

func TestTokenService_AccessTokenRoundTrip(t *testing.T) {
	svc, err := NewTokenService(testKey(0x01), 15*time.Minute, 720*time.Hour)
	require.NoError(t, err)

	user := &domain.User{
		ID:     "usr-abc123",
		Email:  "ada@example.com",
		IsRoot: true,
	}

	token, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(token, "v4.local."))

	claims, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, user.Email, claims.Email)
	require.True(t, claims.IsRoot)
	require.Equal(t, user.ID, claims.Subject)
	require.Equal(t, "devflow-server", claims.Issuer)
	require.Equal(t, "devflow-client", claims.Audience)
	require.True(t, strings.HasPrefix(claims.TokenID, "token-"))
	require.WithinDuration(t, time.Now().Add(15*time.Minute), claims.Expiration, 5*time.Second)
}

func TestTokenService_NonRootClaims(t *testing.T) {
	svc, err := NewTokenService(testKey(0x01), 15*time.Minute, time.Hour)
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken(&domain.User{ID: "usr-plain", Email: "bob@example.com"})
	require.NoError(t, err)

	claims, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)
	require.False(t, claims.IsRoot)
}

func TestTokenService_RejectsExpired(t *testing.T) {
	svc, err := NewTokenService(testKey(0x01), -time.Minute, time.Hour)
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken(&domain.User{ID: "usr-1", Email: "a@b.c"})
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(token)
	require.Error(t, err)
}

func TestTokenService_RejectsWrongKey(t *testing.T) {
	issuer, err := NewTokenService(testKey(0x01), time.Minute, time.Hour)
	require.NoError(t, err)
	other, err := NewTokenService(testKey(0x02), time.Minute, time.Hour)
	require.NoError(t, err)

	token, err := issuer.GenerateAccessToken(&domain.User{ID: "usr-1", Email: "a@b.c"})
	require.NoError(t, err)

	_, err = other.VerifyAccessToken(token)
	require.Error(t, err)

	_, err = other.VerifyAccessToken("v4.local.garbage")
	require.Error(t, err)
}

func TestRefreshTokens(t *testing.T) {
	svc, err := NewTokenService(testKey(0x01), time.Minute, time.Hour)
	require.NoError(t, err)

	tok1, err := svc.GenerateRefreshToken()
	require.NoError(t, err)
	tok2, err := svc.GenerateRefreshToken()
	require.NoError(t, err)
	require.NotEqual(t, tok1, tok2)

	raw, err := base64.URLEncoding.DecodeString(tok1)
	require.NoError(t, err)
	require.Len(t, raw, refreshTokenSize)

	hash := HashRefreshToken(tok1)
	require.Len(t, hash, 64)
	require.Equal(t, hash, HashRefreshToken(tok1))
	require.NotEqual(t, hash, HashRefreshToken(tok2))
}

func TestClientInfo_Sanitized(t *testing.T) {
	info := ClientInfo{
		Name:    "  DevFlow Web  ",
		Version: strings.Repeat("9", 100),
	}

	clean := info.Sanitized()
	require.Equal(t, "DevFlow Web", clean.Name)
	require.Len(t, clean.Version, maxClientFieldLength)
}

func TestLoadOrGenerateKey(t *testing.T) {
	dir := t.TempDir()

	key, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	require.Len(t, key, keyLength)

	// Second call loads the same key from disk.
	again, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	require.Equal(t, key, again)

	info, err := os.Stat(filepath.Join(dir, "auth.key"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadOrGenerateKey_RejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "auth.key"), []byte("not hex at all"), 0o600))

	_, err := LoadOrGenerateKey(dir)
	require.Error(t, err)
}

package api

import (
	"bytes"
	"encoding/json/v2"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devflowapp/devflow-server/internal/service"
)

// testPNG returns an encoded 16x16 PNG.
func testPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestGetProfile_RequiresAuth(t *testing.T) {
	ts := setupTestServer(t)
	ts.setupRootUser(t)

	resp := ts.api.Get("/api/v1/users/me")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestGetProfile_Success(t *testing.T) {
	ts := setupTestServer(t)
	token, userID := ts.setupRootUser(t)

	resp := ts.api.Get("/api/v1/users/me", "Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var envelope testEnvelope[service.UserView]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	assert.Equal(t, userID, envelope.Data.ID)
	assert.Equal(t, "admin@test.com", envelope.Data.Email)
	assert.Equal(t, "Test Admin", envelope.Data.DisplayName)
	assert.NotEmpty(t, envelope.Data.AvatarColor)
}

func TestUploadAvatar_RoundTrip(t *testing.T) {
	ts := setupTestServer(t)
	token, userID := ts.setupRootUser(t)

	pngBytes := testPNG(t)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/users/me/avatar", bytes.NewReader(pngBytes))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "image/png")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var envelope testEnvelope[service.UserView]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Data.AvatarHash)
	assert.NotEmpty(t, envelope.Data.AvatarBlurHash)

	// Fetch the raw bytes back.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/"+userID+"/avatar", nil)
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, pngBytes, rec.Body.Bytes())
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	// Conditional fetch with the returned ETag short-circuits.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/"+userID+"/avatar", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestUploadAvatar_RejectsGarbage(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.setupRootUser(t)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/users/me/avatar", bytes.NewReader([]byte("not an image")))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "image/png")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetAvatar_NoneUploaded(t *testing.T) {
	ts := setupTestServer(t)
	_, userID := ts.setupRootUser(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/"+userID+"/avatar", nil)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

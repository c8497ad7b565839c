package api

import (
	"encoding/json/v2"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetInstance_SetupRequiredBeforeFirstUser(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/instance")
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[InstanceResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	assert.True(t, envelope.Success)
	assert.NotEmpty(t, envelope.Data.ID)
	assert.Equal(t, "Test Server", envelope.Data.Name)
	assert.True(t, envelope.Data.SetupRequired)
}

func TestGetInstance_SetupCompleteAfterRootUser(t *testing.T) {
	ts := setupTestServer(t)
	ts.setupRootUser(t)

	resp := ts.api.Get("/api/v1/instance")
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[InstanceResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	assert.False(t, envelope.Data.SetupRequired)
}

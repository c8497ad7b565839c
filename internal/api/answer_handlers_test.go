package api

import (
	"encoding/json/v2"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devflowapp/devflow-server/internal/service"
)

func (ts *testServer) createAnswer(t *testing.T, token, questionID, content string) service.AnswerView {
	t.Helper()

	resp := ts.api.Post("/api/v1/questions/"+questionID+"/answers",
		map[string]any{"content": content},
		"Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code, "Create answer failed: %s", resp.Body.String())

	var envelope testEnvelope[service.AnswerView]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestCreateAnswer_Success(t *testing.T) {
	ts := setupTestServer(t)
	token, userID := ts.setupRootUser(t)

	q := ts.createQuestion(t, token, "Answerable question", []string{"go"})

	a := ts.createAnswer(t, token, q.ID, "Use a prefix iterator.")
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, q.ID, a.QuestionID)
	assert.Equal(t, userID, a.Author.ID)

	// The question's answer counter moves in the same transaction.
	resp := ts.api.Get("/api/v1/questions/" + q.ID)
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[service.QuestionView]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, 1, envelope.Data.Answers)
}

func TestCreateAnswer_HTMLNormalizedToMarkdown(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.setupRootUser(t)

	q := ts.createQuestion(t, token, "Rich text question", []string{"go"})

	resp := ts.api.Post("/api/v1/questions/"+q.ID+"/answers",
		map[string]any{
			"content":        "<p>Cancel via the <strong>context</strong> package.</p>",
			"content_format": "html",
		},
		"Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var envelope testEnvelope[service.AnswerView]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	assert.NotContains(t, envelope.Data.Content, "<p>")
	assert.NotContains(t, envelope.Data.Content, "<strong>")
	assert.Contains(t, envelope.Data.Content, "context")
}

func TestCreateAnswer_RequiresAuth(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.setupRootUser(t)

	q := ts.createQuestion(t, token, "Answerable question", []string{"go"})

	resp := ts.api.Post("/api/v1/questions/"+q.ID+"/answers",
		map[string]any{"content": "anonymous answer"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCreateAnswer_QuestionNotFound(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.setupRootUser(t)

	resp := ts.api.Post("/api/v1/questions/qst_nonexistent/answers",
		map[string]any{"content": "answer to nothing"},
		"Authorization: Bearer "+token)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestListAnswers_Ordering(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.setupRootUser(t)

	q := ts.createQuestion(t, token, "Question", []string{"go"})
	first := ts.createAnswer(t, token, q.ID, "first answer")
	second := ts.createAnswer(t, token, q.ID, "second answer")

	resp := ts.api.Get("/api/v1/questions/" + q.ID + "/answers?filter=oldest")
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[AnswerListResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	require.Len(t, envelope.Data.Answers, 2)
	assert.Equal(t, first.ID, envelope.Data.Answers[0].ID)
	assert.Equal(t, second.ID, envelope.Data.Answers[1].ID)

	resp = ts.api.Get("/api/v1/questions/" + q.ID + "/answers?filter=recent")
	require.Equal(t, http.StatusOK, resp.Code)

	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.Answers, 2)
	assert.Equal(t, second.ID, envelope.Data.Answers[0].ID)
}

func TestDeleteAnswer_OnlyAuthor(t *testing.T) {
	ts := setupTestServer(t)
	authorToken, _ := ts.setupRootUser(t)
	otherToken, _ := ts.registerAndLogin(t, "other@test.com", "Other User")

	q := ts.createQuestion(t, authorToken, "Question", []string{"go"})
	a := ts.createAnswer(t, authorToken, q.ID, "my answer")

	resp := ts.api.Delete("/api/v1/answers/"+a.ID, "Authorization: Bearer "+otherToken)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Delete("/api/v1/answers/"+a.ID, "Authorization: Bearer "+authorToken)
	assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	// The counter decrements with the delete.
	resp = ts.api.Get("/api/v1/questions/" + q.ID)
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[service.QuestionView]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, 0, envelope.Data.Answers)
}

func TestDeleteAnswer_NotFound(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.setupRootUser(t)

	resp := ts.api.Delete("/api/v1/answers/ans_nonexistent", "Authorization: Bearer "+token)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devflowapp/devflow-server/internal/domain"
)

func TestCreateAnswer_BumpsQuestionCounter(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	q, err := s.CreateQuestion(ctx, newTestQuestion("usr_alice"), nil)
	require.NoError(t, err)

	a, err := s.CreateAnswer(ctx, &domain.Answer{
		QuestionID: q.ID,
		AuthorID:   "usr_bob",
		Content:    "Use a buffered channel as a semaphore.",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)

	got, err := s.GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Answers)
}

func TestCreateAnswer_MissingQuestion(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	_, err := s.CreateAnswer(ctx, &domain.Answer{
		QuestionID: "q_missing",
		AuthorID:   "usr_bob",
		Content:    "answering the void",
	})
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestListAnswersForQuestion_Pagination(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	q, err := s.CreateQuestion(ctx, newTestQuestion("usr_alice"), nil)
	require.NoError(t, err)

	for i := range 7 {
		_, err := s.CreateAnswer(ctx, &domain.Answer{
			QuestionID: q.ID,
			AuthorID:   "usr_bob",
			Content:    fmt.Sprintf("Answer number %d", i),
		})
		require.NoError(t, err)
	}

	page1, err := s.ListAnswersForQuestion(ctx, q.ID, SearchParams{Page: 1, PageSize: 5})
	require.NoError(t, err)
	assert.Len(t, page1.Items, 5)
	assert.Equal(t, 7, page1.Total)
	assert.True(t, page1.IsNext)

	page2, err := s.ListAnswersForQuestion(ctx, q.ID, SearchParams{Page: 2, PageSize: 5})
	require.NoError(t, err)
	assert.Len(t, page2.Items, 2)
	assert.False(t, page2.IsNext)
}

func TestListAnswersForQuestion_MissingQuestion(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	_, err := s.ListAnswersForQuestion(ctx, "q_missing", SearchParams{})
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestDeleteAnswer_DecrementsQuestionCounter(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	q, err := s.CreateQuestion(ctx, newTestQuestion("usr_alice"), nil)
	require.NoError(t, err)

	a, err := s.CreateAnswer(ctx, &domain.Answer{
		QuestionID: q.ID,
		AuthorID:   "usr_bob",
		Content:    "Short-lived answer.",
	})
	require.NoError(t, err)

	err = s.DeleteAnswer(ctx, a.ID, "usr_bob")
	require.NoError(t, err)

	_, err = s.GetAnswer(ctx, a.ID)
	assert.ErrorIs(t, err, ErrAnswerNotFound)

	got, err := s.GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Answers)
}

func TestDeleteAnswer_OwnershipEnforced(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	q, err := s.CreateQuestion(ctx, newTestQuestion("usr_alice"), nil)
	require.NoError(t, err)

	a, err := s.CreateAnswer(ctx, &domain.Answer{
		QuestionID: q.ID,
		AuthorID:   "usr_bob",
		Content:    "Mine, not yours.",
	})
	require.NoError(t, err)

	err = s.DeleteAnswer(ctx, a.ID, "usr_mallory")
	assert.ErrorIs(t, err, ErrNotAnswerAuthor)

	_, err = s.GetAnswer(ctx, a.ID)
	assert.NoError(t, err)
}

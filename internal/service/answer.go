package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/devflowapp/devflow-server/internal/domain"
	domainerrors "github.com/devflowapp/devflow-server/internal/errors"
	"github.com/devflowapp/devflow-server/internal/store"
	"github.com/devflowapp/devflow-server/internal/validation"
)

// AnswerService handles posting and listing answers. The answer counter on
// the parent question moves inside the store transaction, never here.
type AnswerService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewAnswerService creates a new answer service.
func NewAnswerService(s *store.Store, v *validation.Validator, logger *slog.Logger) *AnswerService {
	return &AnswerService{
		store:     s,
		validator: v,
		logger:    logger,
	}
}

// CreateAnswerRequest contains a new answer submission.
type CreateAnswerRequest struct {
	Content       string `json:"content" validate:"required,max=30000"`
	ContentFormat string `json:"content_format,omitempty" validate:"omitempty,oneof=markdown html"`
}

// ListAnswersRequest drives the paginated answer list for one question.
type ListAnswersRequest struct {
	Page     int    `json:"page" validate:"omitempty,gte=1"`
	PageSize int    `json:"page_size" validate:"omitempty,gte=1,lte=100"`
	Filter   string `json:"filter" validate:"omitempty,oneof=recent oldest"`
}

// Create posts an answer to a question.
func (s *AnswerService) Create(ctx context.Context, authorID, questionID string, req CreateAnswerRequest) (*AnswerView, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	a := &domain.Answer{
		QuestionID: questionID,
		AuthorID:   authorID,
		Content:    normalizeContent(req.Content, req.ContentFormat),
	}

	created, err := s.store.CreateAnswer(ctx, a)
	if err != nil {
		if errors.Is(err, store.ErrQuestionNotFound) {
			return nil, domainerrors.NotFound("question not found")
		}
		return nil, domainerrors.CreationFailed("could not create answer").WithCause(err)
	}

	s.logger.Info("Answer created",
		"answer_id", created.ID,
		"question_id", questionID,
		"author_id", authorID,
	)

	authors := newAuthorResolver(s.store)
	view := answerView(created, authors.resolve(ctx, created.AuthorID))
	return &view, nil
}

// List returns one page of a question's answers with authors resolved.
func (s *AnswerService) List(ctx context.Context, questionID string, req ListAnswersRequest) (*store.PagedResult[AnswerView], error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	page, err := s.store.ListAnswersForQuestion(ctx, questionID, store.SearchParams{
		Page:     req.Page,
		PageSize: req.PageSize,
		Filter:   store.Filter(req.Filter),
	})
	if err != nil {
		if errors.Is(err, store.ErrQuestionNotFound) {
			return nil, domainerrors.NotFound("question not found")
		}
		return nil, domainerrors.Store("could not list answers").WithCause(err)
	}

	authors := newAuthorResolver(s.store)
	items := make([]AnswerView, 0, len(page.Items))
	for _, a := range page.Items {
		items = append(items, answerView(a, authors.resolve(ctx, a.AuthorID)))
	}

	return &store.PagedResult[AnswerView]{
		Items:  items,
		Total:  page.Total,
		IsNext: page.IsNext,
	}, nil
}

// Delete removes an answer the caller owns. The question's answer counter
// decrements in the same transaction.
func (s *AnswerService) Delete(ctx context.Context, callerID, answerID string) error {
	err := s.store.DeleteAnswer(ctx, answerID, callerID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAnswerNotFound):
			return domainerrors.NotFound("answer not found")
		case errors.Is(err, store.ErrNotAnswerAuthor):
			return domainerrors.Forbidden("only the author can delete this answer")
		default:
			return domainerrors.Store("could not delete answer").WithCause(err)
		}
	}

	s.logger.Info("Answer deleted",
		"answer_id", answerID,
		"author_id", callerID,
	)

	return nil
}

func answerView(a *domain.Answer, author UserRef) AnswerView {
	return AnswerView{
		ID:         a.ID,
		QuestionID: a.QuestionID,
		Content:    a.Content,
		Author:     author,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

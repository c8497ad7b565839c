// Package service implements DevFlow's business logic: request validation,
// content normalization, and orchestration between the store and the
// supporting subsystems. Transactional invariants live in the store; this
// layer decides what enters a transaction and how its outcome is reported.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/devflowapp/devflow-server/internal/content"
	"github.com/devflowapp/devflow-server/internal/domain"
	domainerrors "github.com/devflowapp/devflow-server/internal/errors"
	"github.com/devflowapp/devflow-server/internal/store"
	"github.com/devflowapp/devflow-server/internal/validation"
)

// ContentFormatHTML marks request content that arrives as HTML and must be
// converted to Markdown before persisting. Anything else is treated as
// Markdown and only sanitized.
const ContentFormatHTML = "html"

// QuestionService orchestrates question create/edit/read flows around the
// store's transactional primitives.
type QuestionService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewQuestionService creates a new question service.
func NewQuestionService(s *store.Store, v *validation.Validator, logger *slog.Logger) *QuestionService {
	return &QuestionService{
		store:     s,
		validator: v,
		logger:    logger,
	}
}

// CreateQuestionRequest contains a new question submission.
type CreateQuestionRequest struct {
	Title         string   `json:"title" validate:"required,max=150"`
	Content       string   `json:"content" validate:"required,max=30000"`
	ContentFormat string   `json:"content_format,omitempty" validate:"omitempty,oneof=markdown html"`
	Tags          []string `json:"tags" validate:"required,min=1,max=5,dive,tagname"`
}

// EditQuestionRequest contains a full edit: title, content, and the desired
// tag set. Tags not listed are removed.
type EditQuestionRequest struct {
	Title         string   `json:"title" validate:"required,max=150"`
	Content       string   `json:"content" validate:"required,max=30000"`
	ContentFormat string   `json:"content_format,omitempty" validate:"omitempty,oneof=markdown html"`
	Tags          []string `json:"tags" validate:"required,min=1,max=5,dive,tagname"`
}

// ListQuestionsRequest drives the paginated question list.
type ListQuestionsRequest struct {
	Page     int    `json:"page" validate:"omitempty,gte=1"`
	PageSize int    `json:"page_size" validate:"omitempty,gte=1,lte=100"`
	Query    string `json:"query" validate:"omitempty,max=100"`
	Filter   string `json:"filter" validate:"omitempty,oneof=popular recent oldest name"`
}

// Create validates and persists a new question with its tags as one unit.
func (s *QuestionService) Create(ctx context.Context, authorID string, req CreateQuestionRequest) (*QuestionView, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	q := &domain.Question{
		Title:    content.SanitizeTitle(req.Title),
		Content:  normalizeContent(req.Content, req.ContentFormat),
		AuthorID: authorID,
	}

	created, err := s.store.CreateQuestion(ctx, q, req.Tags)
	if err != nil {
		return nil, domainerrors.CreationFailed("could not create question").WithCause(err)
	}

	s.logger.Info("Question created",
		"question_id", created.ID,
		"author_id", authorID,
		"tags", len(created.Tags),
	)

	return s.view(ctx, created)
}

// Edit applies a full update to a question the caller owns. Title, content,
// and the tag diff commit atomically; an edit that changes nothing writes
// nothing.
func (s *QuestionService) Edit(ctx context.Context, callerID, questionID string, req EditQuestionRequest) (*QuestionView, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	title := content.SanitizeTitle(req.Title)
	body := normalizeContent(req.Content, req.ContentFormat)

	updated, err := s.store.UpdateQuestion(ctx, questionID, callerID, title, body, req.Tags)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrQuestionNotFound):
			return nil, domainerrors.NotFound("question not found")
		case errors.Is(err, store.ErrNotQuestionAuthor):
			return nil, domainerrors.Forbidden("only the author can edit this question")
		default:
			return nil, domainerrors.Store("could not update question").WithCause(err)
		}
	}

	s.logger.Info("Question updated",
		"question_id", questionID,
		"author_id", callerID,
	)

	return s.view(ctx, updated)
}

// Delete removes a question the caller owns together with its answers,
// votes, and tag associations.
func (s *QuestionService) Delete(ctx context.Context, callerID, questionID string) error {
	err := s.store.DeleteQuestion(ctx, questionID, callerID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrQuestionNotFound):
			return domainerrors.NotFound("question not found")
		case errors.Is(err, store.ErrNotQuestionAuthor):
			return domainerrors.Forbidden("only the author can delete this question")
		default:
			return domainerrors.Store("could not delete question").WithCause(err)
		}
	}

	s.logger.Info("Question deleted",
		"question_id", questionID,
		"author_id", callerID,
	)

	return nil
}

// Get returns a single question with its tags resolved to full records.
func (s *QuestionService) Get(ctx context.Context, questionID string) (*QuestionView, error) {
	q, tags, err := s.store.GetQuestionWithTags(ctx, questionID)
	if err != nil {
		if errors.Is(err, store.ErrQuestionNotFound) {
			return nil, domainerrors.NotFound("question not found")
		}
		return nil, domainerrors.Store("could not load question").WithCause(err)
	}

	authors := newAuthorResolver(s.store)
	view := questionView(q, tags, authors.resolve(ctx, q.AuthorID))
	return &view, nil
}

// List returns one page of questions ordered per the filter key.
func (s *QuestionService) List(ctx context.Context, req ListQuestionsRequest) (*store.PagedResult[QuestionSummary], error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	page, err := s.store.SearchQuestions(ctx, store.SearchParams{
		Page:     req.Page,
		PageSize: req.PageSize,
		Query:    req.Query,
		Filter:   store.Filter(req.Filter),
	})
	if err != nil {
		return nil, domainerrors.Store("could not list questions").WithCause(err)
	}

	return s.summarize(ctx, page)
}

// RecordView counts one view of a question and returns the new total.
func (s *QuestionService) RecordView(ctx context.Context, questionID string) (int64, error) {
	views, err := s.store.RecordQuestionView(ctx, questionID)
	if err != nil {
		if errors.Is(err, store.ErrQuestionNotFound) {
			return 0, domainerrors.NotFound("question not found")
		}
		return 0, domainerrors.Store("could not record view").WithCause(err)
	}
	return views, nil
}

// Vote records, flips, or retracts the caller's vote and returns the
// question with its updated counters.
func (s *QuestionService) Vote(ctx context.Context, callerID, questionID string, value int) (*QuestionView, error) {
	if value != 1 && value != -1 {
		return nil, domainerrors.Validation("vote value must be 1 or -1")
	}

	q, err := s.store.VoteQuestion(ctx, questionID, callerID, value)
	if err != nil {
		if errors.Is(err, store.ErrQuestionNotFound) {
			return nil, domainerrors.NotFound("question not found")
		}
		return nil, domainerrors.Store("could not record vote").WithCause(err)
	}

	return s.view(ctx, q)
}

// view assembles the full projection for a question whose tags are known
// only by ID.
func (s *QuestionService) view(ctx context.Context, q *domain.Question) (*QuestionView, error) {
	tags, err := s.store.GetTagsByIDs(ctx, q.Tags)
	if err != nil {
		return nil, domainerrors.Store("could not load question tags").WithCause(err)
	}

	authors := newAuthorResolver(s.store)
	view := questionView(q, tags, authors.resolve(ctx, q.AuthorID))
	return &view, nil
}

// summarize projects a page of questions into the reduced list shape,
// resolving authors and tag names per page.
func (s *QuestionService) summarize(ctx context.Context, page *store.PagedResult[*domain.Question]) (*store.PagedResult[QuestionSummary], error) {
	authors := newAuthorResolver(s.store)

	items := make([]QuestionSummary, 0, len(page.Items))
	for _, q := range page.Items {
		tags, err := s.store.GetTagsByIDs(ctx, q.Tags)
		if err != nil {
			return nil, domainerrors.Store("could not load question tags").WithCause(err)
		}
		items = append(items, questionSummary(q, tags, authors.resolve(ctx, q.AuthorID)))
	}

	return &store.PagedResult[QuestionSummary]{
		Items:  items,
		Total:  page.Total,
		IsNext: page.IsNext,
	}, nil
}

func questionView(q *domain.Question, tags []*domain.Tag, author UserRef) QuestionView {
	return QuestionView{
		ID:        q.ID,
		Title:     q.Title,
		Content:   q.Content,
		Author:    author,
		Tags:      tagRefs(tags),
		Views:     q.Views,
		Answers:   q.Answers,
		Upvotes:   q.Upvotes,
		Downvotes: q.Downvotes,
		Score:     q.Score(),
		CreatedAt: q.CreatedAt,
		UpdatedAt: q.UpdatedAt,
	}
}

func questionSummary(q *domain.Question, tags []*domain.Tag, author UserRef) QuestionSummary {
	return QuestionSummary{
		ID:        q.ID,
		Title:     q.Title,
		Author:    author,
		Tags:      tagRefs(tags),
		Views:     q.Views,
		Answers:   q.Answers,
		Score:     q.Score(),
		CreatedAt: q.CreatedAt,
	}
}

// normalizeContent prepares submitted body text for storage. Declared HTML
// goes through Markdown conversion; everything else is only sanitized.
func normalizeContent(raw, format string) string {
	if format == ContentFormatHTML {
		return content.ToMarkdown(raw)
	}
	return content.Sanitize(raw)
}

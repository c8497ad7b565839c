package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/devflowapp/devflow-server/internal/color"
	"github.com/devflowapp/devflow-server/internal/domain"
	domainerrors "github.com/devflowapp/devflow-server/internal/errors"
	"github.com/devflowapp/devflow-server/internal/store"
	"github.com/devflowapp/devflow-server/internal/validation"
)

// TagService serves the community-wide tag collection. Tags have no owner;
// they are created as a side effect of question writes and never through
// this service.
type TagService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewTagService creates a new tag service.
func NewTagService(s *store.Store, v *validation.Validator, logger *slog.Logger) *TagService {
	return &TagService{
		store:     s,
		validator: v,
		logger:    logger,
	}
}

// ListTagsRequest drives the paginated, filtered tag list.
type ListTagsRequest struct {
	Page     int    `json:"page" validate:"omitempty,gte=1"`
	PageSize int    `json:"page_size" validate:"omitempty,gte=1,lte=100"`
	Query    string `json:"query" validate:"omitempty,max=100"`
	Filter   string `json:"filter" validate:"omitempty,oneof=popular recent oldest name"`
}

// TagQuestionsRequest drives the questions-for-a-tag listing.
type TagQuestionsRequest struct {
	Page     int    `json:"page" validate:"omitempty,gte=1"`
	PageSize int    `json:"page_size" validate:"omitempty,gte=1,lte=100"`
	Query    string `json:"query" validate:"omitempty,max=100"`
}

// TagQuestionsPage pairs the resolved tag with one page of its questions.
type TagQuestionsPage struct {
	Tag       TagView           `json:"tag"`
	Questions []QuestionSummary `json:"questions"`
	Total     int               `json:"total"`
	IsNext    bool              `json:"is_next"`
}

// List returns one page of tags ordered per the filter key. Unrecognized
// or absent filters list by popularity.
func (s *TagService) List(ctx context.Context, req ListTagsRequest) (*store.PagedResult[TagView], error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	page, err := s.store.SearchTags(ctx, store.SearchParams{
		Page:     req.Page,
		PageSize: req.PageSize,
		Query:    req.Query,
		Filter:   store.Filter(req.Filter),
	})
	if err != nil {
		return nil, domainerrors.Store("could not list tags").WithCause(err)
	}

	items := make([]TagView, 0, len(page.Items))
	for _, t := range page.Items {
		items = append(items, tagView(t))
	}

	return &store.PagedResult[TagView]{
		Items:  items,
		Total:  page.Total,
		IsNext: page.IsNext,
	}, nil
}

// Get returns a single tag by ID.
func (s *TagService) Get(ctx context.Context, tagID string) (*TagView, error) {
	t, err := s.store.GetTag(ctx, tagID)
	if err != nil {
		if errors.Is(err, store.ErrTagNotFound) {
			return nil, domainerrors.NotFound("tag not found")
		}
		return nil, domainerrors.Store("could not load tag").WithCause(err)
	}

	view := tagView(t)
	return &view, nil
}

// Questions returns one page of the questions carrying a tag, newest
// first, optionally restricted by a case-insensitive title substring.
func (s *TagService) Questions(ctx context.Context, tagID string, req TagQuestionsRequest) (*TagQuestionsPage, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	tag, page, err := s.store.ListQuestionsForTag(ctx, tagID, store.SearchParams{
		Page:     req.Page,
		PageSize: req.PageSize,
		Query:    req.Query,
	})
	if err != nil {
		if errors.Is(err, store.ErrTagNotFound) {
			return nil, domainerrors.NotFound("tag not found")
		}
		return nil, domainerrors.Store("could not list questions for tag").WithCause(err)
	}

	authors := newAuthorResolver(s.store)
	questions := make([]QuestionSummary, 0, len(page.Items))
	for _, q := range page.Items {
		tags, err := s.store.GetTagsByIDs(ctx, q.Tags)
		if err != nil {
			return nil, domainerrors.Store("could not load question tags").WithCause(err)
		}
		questions = append(questions, questionSummary(q, tags, authors.resolve(ctx, q.AuthorID)))
	}

	return &TagQuestionsPage{
		Tag:       tagView(tag),
		Questions: questions,
		Total:     page.Total,
		IsNext:    page.IsNext,
	}, nil
}

func tagView(t *domain.Tag) TagView {
	return TagView{
		ID:        t.ID,
		Name:      t.Name,
		Questions: t.Questions,
		Color:     color.ForTag(t.Canonical),
		CreatedAt: t.CreatedAt,
	}
}

package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/devflowapp/devflow-server/internal/service"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List tags",
		Description: "Returns a page of tags. Tags are community-wide and created as a side effect of question writes.",
		Tags:        []string{"Tags"},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTag",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Get tag",
		Description: "Returns a tag by ID",
		Tags:        []string{"Tags"},
	}, s.handleGetTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTagQuestions",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{id}/questions",
		Summary:     "Get tag questions",
		Description: "Returns a page of the questions carrying this tag, newest first",
		Tags:        []string{"Tags"},
	}, s.handleGetTagQuestions)
}

// === DTOs ===

// ListTagsInput contains query parameters for the tag list.
type ListTagsInput struct {
	Page     int    `query:"page" minimum:"1" doc:"Page number (1-based)"`
	PageSize int    `query:"page_size" minimum:"1" maximum:"100" doc:"Items per page"`
	Query    string `query:"query" maxLength:"100" doc:"Case-insensitive name substring"`
	Filter   string `query:"filter" enum:"popular,recent,oldest,name" doc:"Sort order, defaults to popular"`
}

// TagListResponse is one page of tags.
type TagListResponse struct {
	Tags   []service.TagView `json:"tags" doc:"Page of tags"`
	Total  int               `json:"total" doc:"Total matching tags"`
	IsNext bool              `json:"is_next" doc:"Whether another page exists"`
}

// TagListOutput wraps the tag list for Huma.
type TagListOutput struct {
	Body TagListResponse
}

// TagIDInput identifies a tag by path parameter.
type TagIDInput struct {
	ID string `path:"id" doc:"Tag ID"`
}

// TagOutput wraps a single tag projection for Huma.
type TagOutput struct {
	Body service.TagView
}

// TagQuestionsInput contains parameters for the questions-for-a-tag listing.
type TagQuestionsInput struct {
	ID       string `path:"id" doc:"Tag ID"`
	Page     int    `query:"page" minimum:"1" doc:"Page number (1-based)"`
	PageSize int    `query:"page_size" minimum:"1" maximum:"100" doc:"Items per page"`
	Query    string `query:"query" maxLength:"100" doc:"Case-insensitive title substring"`
}

// TagQuestionsOutput wraps the tag questions page for Huma.
type TagQuestionsOutput struct {
	Body service.TagQuestionsPage
}

// === Handlers ===

func (s *Server) handleListTags(ctx context.Context, input *ListTagsInput) (*TagListOutput, error) {
	page, err := s.services.Tag.List(ctx, service.ListTagsRequest{
		Page:     input.Page,
		PageSize: input.PageSize,
		Query:    input.Query,
		Filter:   input.Filter,
	})
	if err != nil {
		return nil, err
	}

	return &TagListOutput{
		Body: TagListResponse{
			Tags:   page.Items,
			Total:  page.Total,
			IsNext: page.IsNext,
		},
	}, nil
}

func (s *Server) handleGetTag(ctx context.Context, input *TagIDInput) (*TagOutput, error) {
	t, err := s.services.Tag.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &TagOutput{Body: *t}, nil
}

func (s *Server) handleGetTagQuestions(ctx context.Context, input *TagQuestionsInput) (*TagQuestionsOutput, error) {
	page, err := s.services.Tag.Questions(ctx, input.ID, service.TagQuestionsRequest{
		Page:     input.Page,
		PageSize: input.PageSize,
		Query:    input.Query,
	})
	if err != nil {
		return nil, err
	}

	return &TagQuestionsOutput{Body: *page}, nil
}

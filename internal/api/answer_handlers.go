package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/devflowapp/devflow-server/internal/service"
)

func (s *Server) registerAnswerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createAnswer",
		Method:      http.MethodPost,
		Path:        "/api/v1/questions/{id}/answers",
		Summary:     "Post answer",
		Description: "Posts an answer to a question. The question's answer counter updates in the same transaction.",
		Tags:        []string{"Answers"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateAnswer)

	huma.Register(s.api, huma.Operation{
		OperationID: "listAnswers",
		Method:      http.MethodGet,
		Path:        "/api/v1/questions/{id}/answers",
		Summary:     "List answers",
		Description: "Returns a page of a question's answers, newest first by default",
		Tags:        []string{"Answers"},
	}, s.handleListAnswers)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteAnswer",
		Method:      http.MethodDelete,
		Path:        "/api/v1/answers/{id}",
		Summary:     "Delete answer",
		Description: "Deletes an answer. Only the author may delete.",
		Tags:        []string{"Answers"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteAnswer)
}

// === DTOs ===

// AnswerRequest is the request body for posting an answer.
type AnswerRequest struct {
	Content       string `json:"content" validate:"required,max=30000" doc:"Answer body (Markdown unless content_format says otherwise)"`
	ContentFormat string `json:"content_format,omitempty" enum:"markdown,html" doc:"Format of content; html is converted to Markdown"`
}

// CreateAnswerInput wraps the answer request for Huma.
type CreateAnswerInput struct {
	ID   string `path:"id" doc:"Question ID"`
	Body AnswerRequest
}

// AnswerOutput wraps a single answer projection for Huma.
type AnswerOutput struct {
	Body service.AnswerView
}

// ListAnswersInput contains parameters for the answer list.
type ListAnswersInput struct {
	ID       string `path:"id" doc:"Question ID"`
	Page     int    `query:"page" minimum:"1" doc:"Page number (1-based)"`
	PageSize int    `query:"page_size" minimum:"1" maximum:"100" doc:"Items per page"`
	Filter   string `query:"filter" enum:"recent,oldest" doc:"Sort order"`
}

// AnswerListResponse is one page of answers.
type AnswerListResponse struct {
	Answers []service.AnswerView `json:"answers" doc:"Page of answers"`
	Total   int                  `json:"total" doc:"Total answers on the question"`
	IsNext  bool                 `json:"is_next" doc:"Whether another page exists"`
}

// AnswerListOutput wraps the answer list for Huma.
type AnswerListOutput struct {
	Body AnswerListResponse
}

// AnswerIDInput identifies an answer by path parameter.
type AnswerIDInput struct {
	ID string `path:"id" doc:"Answer ID"`
}

// === Handlers ===

func (s *Server) handleCreateAnswer(ctx context.Context, input *CreateAnswerInput) (*AnswerOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	a, err := s.services.Answer.Create(ctx, userID, input.ID, service.CreateAnswerRequest{
		Content:       input.Body.Content,
		ContentFormat: input.Body.ContentFormat,
	})
	if err != nil {
		return nil, err
	}

	return &AnswerOutput{Body: *a}, nil
}

func (s *Server) handleListAnswers(ctx context.Context, input *ListAnswersInput) (*AnswerListOutput, error) {
	page, err := s.services.Answer.List(ctx, input.ID, service.ListAnswersRequest{
		Page:     input.Page,
		PageSize: input.PageSize,
		Filter:   input.Filter,
	})
	if err != nil {
		return nil, err
	}

	return &AnswerListOutput{
		Body: AnswerListResponse{
			Answers: page.Items,
			Total:   page.Total,
			IsNext:  page.IsNext,
		},
	}, nil
}

func (s *Server) handleDeleteAnswer(ctx context.Context, input *AnswerIDInput) (*MessageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Answer.Delete(ctx, userID, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Answer deleted"}}, nil
}

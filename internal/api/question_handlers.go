package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/devflowapp/devflow-server/internal/service"
)

func (s *Server) registerQuestionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createQuestion",
		Method:      http.MethodPost,
		Path:        "/api/v1/questions",
		Summary:     "Create question",
		Description: "Creates a question with its tags in one transaction. Unknown tags are created, known tags are reused case-insensitively.",
		Tags:        []string{"Questions"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateQuestion)

	huma.Register(s.api, huma.Operation{
		OperationID: "listQuestions",
		Method:      http.MethodGet,
		Path:        "/api/v1/questions",
		Summary:     "List questions",
		Description: "Returns a page of questions, filtered and sorted",
		Tags:        []string{"Questions"},
	}, s.handleListQuestions)

	huma.Register(s.api, huma.Operation{
		OperationID: "getQuestion",
		Method:      http.MethodGet,
		Path:        "/api/v1/questions/{id}",
		Summary:     "Get question",
		Description: "Returns a question with its tags resolved to full records",
		Tags:        []string{"Questions"},
	}, s.handleGetQuestion)

	huma.Register(s.api, huma.Operation{
		OperationID: "editQuestion",
		Method:      http.MethodPatch,
		Path:        "/api/v1/questions/{id}",
		Summary:     "Edit question",
		Description: "Updates title, content, and the tag set atomically. Only the author may edit.",
		Tags:        []string{"Questions"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleEditQuestion)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteQuestion",
		Method:      http.MethodDelete,
		Path:        "/api/v1/questions/{id}",
		Summary:     "Delete question",
		Description: "Deletes a question with its answers, votes, and tag associations. Only the author may delete.",
		Tags:        []string{"Questions"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteQuestion)

	huma.Register(s.api, huma.Operation{
		OperationID: "recordQuestionView",
		Method:      http.MethodPost,
		Path:        "/api/v1/questions/{id}/views",
		Summary:     "Record view",
		Description: "Counts one view of a question and returns the new total",
		Tags:        []string{"Questions"},
	}, s.handleRecordView)

	huma.Register(s.api, huma.Operation{
		OperationID: "voteQuestion",
		Method:      http.MethodPost,
		Path:        "/api/v1/questions/{id}/votes",
		Summary:     "Vote on question",
		Description: "Records an up or down vote. Repeating the same value retracts it; the opposite value switches it.",
		Tags:        []string{"Questions"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleVoteQuestion)
}

// === DTOs ===

// QuestionRequest is the request body for creating or editing a question.
type QuestionRequest struct {
	Title         string   `json:"title" validate:"required,max=150" doc:"Question title"`
	Content       string   `json:"content" validate:"required,max=30000" doc:"Question body (Markdown unless content_format says otherwise)"`
	ContentFormat string   `json:"content_format,omitempty" enum:"markdown,html" doc:"Format of content; html is converted to Markdown"`
	Tags          []string `json:"tags" minItems:"1" maxItems:"5" doc:"Tag names, case-insensitive"`
}

// CreateQuestionInput wraps the create request for Huma.
type CreateQuestionInput struct {
	Body QuestionRequest
}

// EditQuestionInput wraps the edit request for Huma.
type EditQuestionInput struct {
	ID   string `path:"id" doc:"Question ID"`
	Body QuestionRequest
}

// QuestionOutput wraps a single question projection for Huma.
type QuestionOutput struct {
	Body service.QuestionView
}

// QuestionIDInput identifies a question by path parameter.
type QuestionIDInput struct {
	ID string `path:"id" doc:"Question ID"`
}

// ListQuestionsInput contains query parameters for the question list.
type ListQuestionsInput struct {
	Page     int    `query:"page" minimum:"1" doc:"Page number (1-based)"`
	PageSize int    `query:"page_size" minimum:"1" maximum:"100" doc:"Items per page"`
	Query    string `query:"query" maxLength:"100" doc:"Case-insensitive title substring"`
	Filter   string `query:"filter" enum:"popular,recent,oldest,name" doc:"Sort order"`
}

// QuestionListResponse is one page of question summaries.
type QuestionListResponse struct {
	Questions []service.QuestionSummary `json:"questions" doc:"Page of questions"`
	Total     int                       `json:"total" doc:"Total matching questions"`
	IsNext    bool                      `json:"is_next" doc:"Whether another page exists"`
}

// QuestionListOutput wraps the question list for Huma.
type QuestionListOutput struct {
	Body QuestionListResponse
}

// ViewCountResponse reports the view total after recording a view.
type ViewCountResponse struct {
	Views int64 `json:"views" doc:"New view count"`
}

// ViewCountOutput wraps the view count for Huma.
type ViewCountOutput struct {
	Body ViewCountResponse
}

// VoteRequest is the request body for voting.
type VoteRequest struct {
	Value int `json:"value" enum:"1,-1" doc:"1 for upvote, -1 for downvote"`
}

// VoteInput wraps the vote request for Huma.
type VoteInput struct {
	ID   string `path:"id" doc:"Question ID"`
	Body VoteRequest
}

// === Handlers ===

func (s *Server) handleCreateQuestion(ctx context.Context, input *CreateQuestionInput) (*QuestionOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	q, err := s.services.Question.Create(ctx, userID, service.CreateQuestionRequest{
		Title:         input.Body.Title,
		Content:       input.Body.Content,
		ContentFormat: input.Body.ContentFormat,
		Tags:          input.Body.Tags,
	})
	if err != nil {
		return nil, err
	}

	return &QuestionOutput{Body: *q}, nil
}

func (s *Server) handleListQuestions(ctx context.Context, input *ListQuestionsInput) (*QuestionListOutput, error) {
	page, err := s.services.Question.List(ctx, service.ListQuestionsRequest{
		Page:     input.Page,
		PageSize: input.PageSize,
		Query:    input.Query,
		Filter:   input.Filter,
	})
	if err != nil {
		return nil, err
	}

	return &QuestionListOutput{
		Body: QuestionListResponse{
			Questions: page.Items,
			Total:     page.Total,
			IsNext:    page.IsNext,
		},
	}, nil
}

func (s *Server) handleGetQuestion(ctx context.Context, input *QuestionIDInput) (*QuestionOutput, error) {
	q, err := s.services.Question.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &QuestionOutput{Body: *q}, nil
}

func (s *Server) handleEditQuestion(ctx context.Context, input *EditQuestionInput) (*QuestionOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	q, err := s.services.Question.Edit(ctx, userID, input.ID, service.EditQuestionRequest{
		Title:         input.Body.Title,
		Content:       input.Body.Content,
		ContentFormat: input.Body.ContentFormat,
		Tags:          input.Body.Tags,
	})
	if err != nil {
		return nil, err
	}

	return &QuestionOutput{Body: *q}, nil
}

func (s *Server) handleDeleteQuestion(ctx context.Context, input *QuestionIDInput) (*MessageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Question.Delete(ctx, userID, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Question deleted"}}, nil
}

func (s *Server) handleRecordView(ctx context.Context, input *QuestionIDInput) (*ViewCountOutput, error) {
	views, err := s.services.Question.RecordView(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &ViewCountOutput{Body: ViewCountResponse{Views: views}}, nil
}

func (s *Server) handleVoteQuestion(ctx context.Context, input *VoteInput) (*QuestionOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	q, err := s.services.Question.Vote(ctx, userID, input.ID, input.Body.Value)
	if err != nil {
		return nil, err
	}

	return &QuestionOutput{Body: *q}, nil
}

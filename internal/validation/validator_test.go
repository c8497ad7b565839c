package validation_test

import (
	"net/http"
	"strings"
	"testing"

	domainerrors "github.com/devflowapp/devflow-server/internal/errors"
	"github.com/devflowapp/devflow-server/internal/validation"
	"github.com/stretchr/testify/assert"
)

type TestRequest struct {
	Title   string   `json:"title" validate:"required,min=8,max=150"`
	Content string   `json:"content" validate:"required"`
	Tags    []string `json:"tags" validate:"omitempty,max=5,dive,tagname"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	req := TestRequest{
		Title:   "How do goroutines get scheduled?",
		Content: "I keep reading about the scheduler but I do not understand M, P, and G.",
		Tags:    []string{"go", "Concurrency"},
	}

	err := v.Validate(req)
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	//nolint:govet // fieldalignment: Minor memory optimization not worth the complexity in test code
	tests := []struct {
		name        string
		req         TestRequest
		wantErrCode int
		wantErrMsg  string
	}{
		{
			name: "missing required field",
			req: TestRequest{
				Title:   "How do goroutines get scheduled?",
				Content: "", // Missing
			},
			wantErrCode: http.StatusUnprocessableEntity,
			wantErrMsg:  "content",
		},
		{
			name: "title too short",
			req: TestRequest{
				Title:   "Help",
				Content: "My build fails.",
			},
			wantErrCode: http.StatusUnprocessableEntity,
			wantErrMsg:  "title",
		},
		{
			name: "title too long",
			req: TestRequest{
				Title:   strings.Repeat("x", 151),
				Content: "My build fails.",
			},
			wantErrCode: http.StatusUnprocessableEntity,
			wantErrMsg:  "title",
		},
		{
			name: "too many tags",
			req: TestRequest{
				Title:   "How do goroutines get scheduled?",
				Content: "See above.",
				Tags:    []string{"a", "b", "c", "d", "e", "f"},
			},
			wantErrCode: http.StatusUnprocessableEntity,
			wantErrMsg:  "tags",
		},
		{
			name: "blank tag name",
			req: TestRequest{
				Title:   "How do goroutines get scheduled?",
				Content: "See above.",
				Tags:    []string{"go", "   "},
			},
			wantErrCode: http.StatusUnprocessableEntity,
			wantErrMsg:  "tags",
		},
		{
			name: "tag name too long",
			req: TestRequest{
				Title:   "How do goroutines get scheduled?",
				Content: "See above.",
				Tags:    []string{strings.Repeat("z", validation.MaxTagNameLength+1)},
			},
			wantErrCode: http.StatusUnprocessableEntity,
			wantErrMsg:  "tags",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			assert.Error(t, err)

			var domainErr *domainerrors.Error
			if assert.True(t, domainerrors.As(err, &domainErr)) {
				assert.Equal(t, tt.wantErrCode, domainErr.Code.HTTPStatus())

				fields, ok := domainErr.Details.(map[string]string)
				if assert.True(t, ok, "details should be a field error map, got %T", domainErr.Details) {
					found := false
					for field := range fields {
						if strings.Contains(field, tt.wantErrMsg) {
							found = true
						}
					}
					assert.True(t, found, "expected a field error mentioning %q, got %v", tt.wantErrMsg, fields)
				}
			}
		})
	}
}

func TestValidator_TagNameCaseInsensitive(t *testing.T) {
	v := validation.New()

	// Mixed case and surrounding whitespace are fine; canonicalization handles them.
	req := TestRequest{
		Title:   "How do goroutines get scheduled?",
		Content: "See above.",
		Tags:    []string{"  Python  ", "C++", "ASP.NET"},
	}

	assert.NoError(t, v.Validate(req))
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()

	req := TestRequest{
		Title:   "",
		Content: "Body text here.",
	}

	err := v.Validate(req)
	assert.Error(t, err)

	// Should use JSON tag name "title", not struct field name "Title"
	assert.Contains(t, err.Error(), "validation failed")

	var domainErr *domainerrors.Error
	if assert.True(t, domainerrors.As(err, &domainErr)) {
		fields, ok := domainErr.Details.(map[string]string)
		if assert.True(t, ok) {
			_, hasJSONName := fields["title"]
			_, hasGoName := fields["Title"]
			assert.True(t, hasJSONName)
			assert.False(t, hasGoName)
		}
	}
}

package api

import (
	"encoding/json/v2"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	domainerrors "github.com/devflowapp/devflow-server/internal/errors"
)

// writeRawError writes an error envelope from a handler that bypasses huma.
// It reuses the same status mapping the error handler applies everywhere else.
func writeRawError(w http.ResponseWriter, err error) {
	apiErr := toAPIError(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.status)
	_ = json.MarshalWrite(w, APIErrorEnvelope{
		Version: EnvelopeVersion,
		Error:   apiErr,
	})
}

// toAPIError normalizes any error into an APIError with an HTTP status.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return &APIError{
			status:  domainErr.HTTPStatus(),
			Code:    string(domainErr.Code),
			Message: domainErr.Message,
			Details: domainErr.Details,
		}
	}

	var statusErr huma.StatusError
	if errors.As(err, &statusErr) {
		return &APIError{
			status:  statusErr.GetStatus(),
			Code:    statusToCode(statusErr.GetStatus()),
			Message: statusErr.Error(),
		}
	}

	if isNotFoundError(err) {
		return &APIError{
			status:  http.StatusNotFound,
			Code:    string(domainerrors.CodeNotFound),
			Message: err.Error(),
		}
	}

	return &APIError{
		status:  http.StatusInternalServerError,
		Code:    string(domainerrors.CodeInternal),
		Message: err.Error(),
	}
}

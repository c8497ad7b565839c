package api

import (
	"strconv"

	"github.com/danielgtaylor/huma/v2"
)

// EnvelopeVersion is the wire version of the response envelope. Clients
// check it before parsing anything else; bump it only for breaking shape
// changes.
const EnvelopeVersion = 1

// APIEnvelope is the success wrapper around every response body.
// The field names are a client contract; see testdata/envelope.
type APIEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	Version int  `json:"v" doc:"Envelope version"`
	Success bool `json:"success" doc:"Always true for success responses"`
	Data    any  `json:"data" doc:"Response payload"`
}

// APIErrorEnvelope is the failure wrapper. Error carries the machine code,
// the human message, and optional structured details.
type APIErrorEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	Version int       `json:"v" doc:"Envelope version"`
	Success bool      `json:"success" doc:"Always false for error responses"`
	Error   *APIError `json:"error" doc:"Error description"`
}

// EnvelopeTransformer wraps every outgoing body in the versioned envelope.
// Registered on the huma config so both handler outputs and error responses
// pass through it.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if apiErr, ok := v.(*APIError); ok {
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Error:   apiErr,
		}, nil
	}

	if err, ok := v.(error); ok {
		code, _ := strconv.Atoi(status)
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Error: &APIError{
				status:  code,
				Code:    statusToCode(code),
				Message: err.Error(),
			},
		}, nil
	}

	return APIEnvelope{
		Version: EnvelopeVersion,
		Success: true,
		Data:    v,
	}, nil
}

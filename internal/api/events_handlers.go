package api

import (
	"net/http"
)

// handleEvents serves the SSE stream. It bypasses huma because the response
// is a long-lived event stream, not a JSON body.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		writeRawError(w, err)
		return
	}

	s.eventsHandler.Stream(w, r, userID, isRootCaller(r.Context()))
}

package api

import (
	"encoding/json/v2"
	"log/slog"
	"net/http"
	"strings"

	domainerrors "github.com/devflowapp/devflow-server/internal/errors"
	"github.com/devflowapp/devflow-server/internal/ratelimit"
)

// rateLimitByIP wraps next with per-IP rate limiting for paths under prefix.
// Limited requests get a 429 inside the standard error envelope.
func rateLimitByIP(limiter *ratelimit.KeyedRateLimiter, prefix string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}

			key := getClientIP(r)
			if !limiter.Allow(key) {
				logger.Warn("Rate limit exceeded",
					"ip", key,
					"path", r.URL.Path,
				)
				writeRateLimited(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeRateLimited writes the 429 envelope directly; rate limiting runs
// before huma, so the transformer never sees these responses.
func writeRateLimited(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.MarshalWrite(w, APIErrorEnvelope{
		Version: EnvelopeVersion,
		Error: &APIError{
			status:  http.StatusTooManyRequests,
			Code:    string(domainerrors.CodeRateLimited),
			Message: "Too many requests. Please try again later.",
		},
	})
}

// getClientIP extracts the client IP from the request.
// Checks X-Forwarded-For and X-Real-IP headers before falling back to RemoteAddr.
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For (may contain multiple IPs, first is client).
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr (strip port).
	ip := r.RemoteAddr
	if i := strings.LastIndexByte(ip, ':'); i >= 0 {
		return ip[:i]
	}
	return ip
}

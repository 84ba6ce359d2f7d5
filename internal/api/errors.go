package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"bookrec/internal/domain"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor maps domain errors to HTTP status codes and machine codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		return http.StatusBadRequest, "invalid_query"
	case errors.Is(err, domain.ErrInvalidFilter):
		return http.StatusBadRequest, "invalid_filter"
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		return http.StatusServiceUnavailable, "embedding_unavailable"
	case errors.Is(err, domain.ErrIndexUnavailable):
		return http.StatusServiceUnavailable, "index_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	}
	return http.StatusInternalServerError, "internal"
}

// writeServiceError maps err and writes it. A cancelled request writes
// nothing; the client is gone.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		return
	}
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", strconv.Itoa(int(s.cfg.RetryAfter.Seconds())))
	}
	if status >= 500 {
		s.log.Error("request failed", zap.String("code", code), zap.Error(err))
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	writeError(w, status, code, msg)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

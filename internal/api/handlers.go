package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"bookrec/internal/service"
)

const maxBodyBytes = 1 << 16

// RecommendRequest is the POST /recommendations body.
type RecommendRequest struct {
	Query    string `json:"query" validate:"required,max=2000"`
	Category string `json:"category,omitempty" validate:"max=200"`
	Tone     string `json:"tone,omitempty" validate:"max=50"`
	Limit    int    `json:"limit,omitempty" validate:"gte=0,lte=1000"`
}

// RecommendResponse wraps the ranked cards.
type RecommendResponse struct {
	Recommendations []service.BookView `json:"recommendations"`
}

// BrowseResponse lists catalog books matching the filters.
type BrowseResponse struct {
	Books []service.BookView `json:"books"`
}

// HealthResponse reports readiness.
type HealthResponse struct {
	Status       string `json:"status"`
	Books        int    `json:"books"`
	IndexEntries int    `json:"index_entries"`
	Error        string `json:"error,omitempty"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the book recommender API"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Books: s.svc.CatalogSize()}
	if s.index != nil {
		n, err := s.index.Count(r.Context())
		if err != nil {
			resp.Status = "degraded"
			resp.Error = err.Error()
			w.Header().Set("Retry-After", strconv.Itoa(int(s.cfg.RetryAfter.Seconds())))
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp.IndexEntries = n
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFilters(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.ListFilters())
}

func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	books, err := s.svc.Browse(q.Get("category"), q.Get("tone"), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	views := make([]service.BookView, len(books))
	for i, b := range books {
		views[i] = s.svc.View(b, "")
	}
	writeJSON(w, http.StatusOK, BrowseResponse{Books: views})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		msg := "invalid JSON body"
		if errors.Is(err, io.EOF) {
			msg = "request body is empty"
		}
		writeError(w, http.StatusBadRequest, "invalid_request", msg)
		return
	}
	if err := s.validator.Validate(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	recs, err := s.svc.Recommend(r.Context(), service.RecommendRequest{
		Query:    req.Query,
		Category: req.Category,
		Tone:     req.Tone,
		Limit:    req.Limit,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RecommendResponse{Recommendations: s.svc.Views(recs, req.Query)})
}

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookrec/internal/catalog"
	"bookrec/internal/domain"
	"bookrec/internal/service"
)

type fakeEngine struct {
	recs  []domain.Recommendation
	err   error
	calls int
	last  domain.Query
}

func (f *fakeEngine) Recommend(_ context.Context, q domain.Query) ([]domain.Recommendation, error) {
	f.calls++
	f.last = q
	return f.recs, f.err
}

type fakeCounter struct {
	n   int
	err error
}

func (f fakeCounter) Count(context.Context) (int, error) { return f.n, f.err }

type testServer struct {
	engine *fakeEngine
	srv    *Server
	store  *catalog.Store
}

func setupTestServer(t *testing.T, cfg Config, counter Counter) *testServer {
	t.Helper()
	store, err := catalog.New([]domain.Book{
		{ID: "1", Title: "Sea", Authors: []string{"Ann", "Bo"}, Category: "Fiction", DominantTone: domain.ToneSad,
			Description: "A ship sinks in a storm."},
		{ID: "2", Title: "Soil", Category: "Non-fiction", DominantTone: domain.ToneHappy},
	})
	require.NoError(t, err)
	eng := &fakeEngine{}
	svc := service.New(eng, store)
	return &testServer{engine: eng, srv: NewServer(svc, counter, cfg, nil), store: store}
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	ts.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestRootAndHealth(t *testing.T) {
	ts := setupTestServer(t, Config{}, fakeCounter{n: 7})

	rec := ts.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = ts.do(http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	h := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, 2, h.Books)
	assert.Equal(t, 7, h.IndexEntries)
}

func TestHealth_IndexDown(t *testing.T) {
	ts := setupTestServer(t, Config{}, fakeCounter{err: errors.New("connection refused")})
	rec := ts.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))
	assert.Equal(t, "degraded", decode[HealthResponse](t, rec).Status)
}

func TestFilters(t *testing.T) {
	ts := setupTestServer(t, Config{}, nil)
	rec := ts.do(http.MethodGet, "/filters", "")
	require.Equal(t, http.StatusOK, rec.Code)
	f := decode[service.Filters](t, rec)
	assert.Equal(t, []string{"All", "Fiction", "Non-fiction"}, f.Categories)
	assert.Equal(t, []string{"All", "Happy", "Sad"}, f.Tones)
}

func TestRecommend_Success(t *testing.T) {
	ts := setupTestServer(t, Config{}, nil)
	b, _ := ts.store.Get("1")
	ts.engine.recs = []domain.Recommendation{{Book: b, Score: 0.75}}

	rec := ts.do(http.MethodPost, "/recommendations", `{"query":"storm at sea","category":"Fiction","limit":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decode[RecommendResponse](t, rec)
	require.Len(t, resp.Recommendations, 1)
	v := resp.Recommendations[0]
	assert.Equal(t, "1", v.ID)
	assert.Equal(t, "Ann and Bo", v.AuthorsLine)
	assert.InDelta(t, 0.75, v.Score, 1e-9)
	assert.Equal(t, domain.Query{Text: "storm at sea", Category: "Fiction", Tone: domain.ToneAll, Limit: 3}, ts.engine.last)
}

func TestRecommend_EmptyResultIsSuccess(t *testing.T) {
	ts := setupTestServer(t, Config{}, nil)
	ts.engine.recs = []domain.Recommendation{}
	rec := ts.do(http.MethodPost, "/recommendations", `{"query":"nothing"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"recommendations":[]}`, rec.Body.String())
}

func TestRecommend_BadRequests(t *testing.T) {
	ts := setupTestServer(t, Config{}, nil)
	cases := map[string]struct {
		body string
		code string
	}{
		"empty body":     {"", "invalid_request"},
		"malformed json": {`{"query":`, "invalid_request"},
		"missing query":  {`{"category":"Fiction"}`, "invalid_request"},
		"negative limit": {`{"query":"x","limit":-1}`, "invalid_request"},
		"unknown filter": {`{"query":"x","category":"Poetry"}`, "invalid_filter"},
		"unknown tone":   {`{"query":"x","tone":"Gloomy"}`, "invalid_filter"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/recommendations", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.code, decode[ErrorResponse](t, rec).Code)
		})
	}
	assert.Zero(t, ts.engine.calls)
}

func TestRecommend_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrInvalidQuery, http.StatusBadRequest, "invalid_query"},
		{domain.ErrEmbeddingUnavailable, http.StatusServiceUnavailable, "embedding_unavailable"},
		{domain.ErrIndexUnavailable, http.StatusServiceUnavailable, "index_unavailable"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			ts := setupTestServer(t, Config{RetryAfter: 0}, nil)
			ts.engine.err = tc.err
			rec := ts.do(http.MethodPost, "/recommendations", `{"query":"x"}`)
			assert.Equal(t, tc.status, rec.Code)
			body := decode[ErrorResponse](t, rec)
			assert.Equal(t, tc.code, body.Code)
			if tc.status == http.StatusServiceUnavailable {
				assert.Equal(t, "5", rec.Header().Get("Retry-After"))
			}
			if tc.status == http.StatusInternalServerError {
				assert.Equal(t, "internal error", body.Error)
			}
		})
	}
}

func TestBrowse(t *testing.T) {
	ts := setupTestServer(t, Config{}, nil)
	rec := ts.do(http.MethodGet, "/books?tone=Happy", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[BrowseResponse](t, rec)
	require.Len(t, resp.Books, 1)
	assert.Equal(t, "2", resp.Books[0].ID)

	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/books?limit=x", "").Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/books?category=Poetry", "").Code)
}

func TestCORSAndNotFound(t *testing.T) {
	ts := setupTestServer(t, Config{CORSOrigins: []string{"https://books.example"}}, nil)
	req := httptest.NewRequest(http.MethodOptions, "/recommendations", nil)
	req.Header.Set("Origin", "https://books.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	ts.srv.ServeHTTP(rec, req)
	assert.Equal(t, "https://books.example", rec.Header().Get("Access-Control-Allow-Origin"))

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/nope", "").Code)
}

func TestRateLimit(t *testing.T) {
	ts := setupTestServer(t, Config{RateLimitPerMinute: 2}, nil)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/filters", "").Code)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/filters", "").Code)
	rec := ts.do(http.MethodGet, "/filters", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", decode[ErrorResponse](t, rec).Code)
}

func TestValidator_UsesJSONNames(t *testing.T) {
	err := NewValidator().Validate(RecommendRequest{Limit: -2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query is required")
	assert.Contains(t, err.Error(), "limit must be greater than or equal to 0")
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t, Config{}, nil)
	ts.engine.recs = []domain.Recommendation{}
	ts.do(http.MethodPost, "/recommendations", `{"query":"x"}`)

	rec := ts.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "bookrec_recommendations_total")
	assert.Contains(t, body, `route="/recommendations"`)
}

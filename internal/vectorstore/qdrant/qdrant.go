package qdrant

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"bookrec/internal/domain"
	"bookrec/internal/vectorstore"
)

// pointNamespace derives stable point ids; Qdrant only accepts UUIDs or
// unsigned integers.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("bookrec/index-entry"))

// Storage is a minimal REST client to Qdrant.
// It creates the collection if missing.
type Storage struct {
	url        string
	apiKey     string
	collection string
	distance   string
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Distance   string
	Timeout    time.Duration
}

// statusError carries the HTTP status of a failed Qdrant call.
type statusError struct {
	method, url string
	status      int
	text        string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %d %s", e.method, e.url, e.status, e.text)
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	distance := cfg.Distance
	if distance == "" {
		distance = "Cosine"
	}
	return &Storage{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		distance:   distance,
		client:     &http.Client{Timeout: timeout},
	}
}

// PointID maps an index entry id to its Qdrant point id.
func PointID(entryID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(entryID)).String()
}

func (s *Storage) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", s.url, s.collection)
}

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": s.distance,
		},
	}
	err := s.do(ctx, http.MethodPut, s.collectionURL(), body, nil)
	var se *statusError
	// 409: collection already exists
	if errors.As(err, &se) && se.status == http.StatusConflict {
		return nil
	}
	return err
}

func (s *Storage) Upsert(ctx context.Context, entries []domain.IndexEntry, vectors [][]float64) error {
	if len(entries) != len(vectors) {
		return errors.New("entries and vectors length mismatch")
	}
	points := make([]map[string]any, len(entries))
	for i, e := range entries {
		points[i] = map[string]any{
			"id":     PointID(e.ID),
			"vector": vectors[i],
			"payload": map[string]any{
				"book_id":  e.BookID,
				"entry_id": e.ID,
				"index":    e.Index,
				"text":     e.Text,
			},
		}
	}
	body := map[string]any{"points": points}
	return s.do(ctx, http.MethodPut, s.collectionURL()+"/points?wait=true", body, nil)
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL()+"/points/search", req, &resp); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: collection %s not found", domain.ErrIndexUnavailable, s.collection)
		}
		return nil, err
	}
	// An existing but unpopulated collection answers with no points.
	if len(resp.Result) == 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, vectorstore.ErrEmpty)
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		entry := domain.IndexEntry{}
		if v, ok := r.Payload["book_id"].(string); ok {
			entry.BookID = v
		}
		if v, ok := r.Payload["entry_id"].(string); ok {
			entry.ID = v
		}
		if v, ok := r.Payload["index"].(float64); ok {
			entry.Index = int(v)
		}
		if v, ok := r.Payload["text"].(string); ok {
			entry.Text = v
		}
		results = append(results, domain.SearchResult{Entry: entry, Score: r.Score})
	}
	return results, nil
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	body := map[string]any{"exact": true}
	if err := s.do(ctx, http.MethodPost, s.collectionURL()+"/points/count", body, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// Clear drops the collection. A missing collection is not an error.
func (s *Storage) Clear(ctx context.Context) error {
	err := s.do(ctx, http.MethodDelete, s.collectionURL(), nil, nil)
	var se *statusError
	if errors.As(err, &se) && se.status == http.StatusNotFound {
		return nil
	}
	return err
}

func (s *Storage) do(ctx context.Context, method, url string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{method: method, url: url, status: resp.StatusCode, text: strings.TrimSpace(string(msg))}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

var _ vectorstore.Storage = (*Storage)(nil)

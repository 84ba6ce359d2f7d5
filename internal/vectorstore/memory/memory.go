package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"bookrec/internal/domain"
	"bookrec/internal/vectorstore"
)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
// Equal scores keep insertion order.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
	entries   []domain.IndexEntry
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = nil
	s.entries = nil
	return nil
}

func (s *Storage) Upsert(_ context.Context, entries []domain.IndexEntry, vectors [][]float64) error {
	if len(entries) != len(vectors) {
		return errors.New("entries and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if len(v) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	s.entries = append(s.entries, entries...)
	s.vectors = append(s.vectors, vectors...)
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.vectors) == 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, vectorstore.ErrEmpty)
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(vector), s.dimension)
	}
	if topK <= 0 {
		topK = 5
	}
	qn := norm(vector)
	scores := make([]float64, len(s.vectors))
	for i := range s.vectors {
		scores[i] = cosine(s.vectors[i], vector, qn)
	}
	idxs := argsortDesc(scores)
	if topK > len(idxs) {
		topK = len(idxs)
	}
	results := make([]domain.SearchResult, 0, topK)
	for _, j := range idxs[:topK] {
		results = append(results, domain.SearchResult{Entry: s.entries[j], Score: scores[j]})
	}
	return results, nil
}

func (s *Storage) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors), nil
}

func (s *Storage) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	s.entries = nil
	return nil
}

func cosine(a, b []float64, bn float64) float64 {
	an := norm(a)
	if an == 0 || bn == 0 {
		return 0
	}
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum / (an * bn)
}

func norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

func argsortDesc(vals []float64) []int {
	idxs := make([]int, len(vals))
	for i := range vals {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool { return vals[idxs[a]] > vals[idxs[b]] })
	return idxs
}

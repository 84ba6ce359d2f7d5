package vectorstore

import (
	"context"
	"errors"

	"bookrec/internal/domain"
)

// ErrEmpty is returned by Search when the store holds no vectors.
var ErrEmpty = errors.New("vector store is empty")

// Storage persists vectors and supports similarity search.
type Storage interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, entries []domain.IndexEntry, vectors [][]float64) error
	Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

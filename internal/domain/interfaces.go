package domain

import "context"

// IndexEntry is one vector in the index. A book may own several entries
// when its description is chunked.
type IndexEntry struct {
	ID     string
	BookID string
	Text   string
	Index  int
}

// Key returns the catalog key carried by the entry. Older indexes only
// stored the tagged text, in which case the caller resolves the id from it.
func (e IndexEntry) Key() string {
	if e.BookID != "" {
		return e.BookID
	}
	return e.Text
}

// SearchResult represents a matching index entry with a similarity score.
type SearchResult struct {
	Entry IndexEntry
	Score float64
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Chunker splits an indexed text into entries suitable for retrieval.
type Chunker interface {
	Chunk(bookID, text string) ([]IndexEntry, error)
}

// VectorIndex is the read side of a vector store: nearest neighbours by
// similarity, descending.
type VectorIndex interface {
	Search(ctx context.Context, vector []float64, topK int) ([]SearchResult, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

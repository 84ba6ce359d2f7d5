// Package indexer populates a vector store from the book catalog.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"bookrec/internal/catalog"
	"bookrec/internal/domain"
	"bookrec/internal/vectorstore"
)

const upsertBatch = 256

// Stats describes a completed build.
type Stats struct {
	Books     int
	Entries   int
	Dimension int
	Elapsed   time.Duration
}

// Entries chunks every catalog description. Books without a description
// get a single entry tagged with their title.
func Entries(store *catalog.Store, ch domain.Chunker) ([]domain.IndexEntry, error) {
	var entries []domain.IndexEntry
	for _, b := range store.All() {
		es, err := ch.Chunk(b.ID, b.Description)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", b.ID, err)
		}
		if len(es) == 0 {
			es = []domain.IndexEntry{{ID: b.ID + ":0", BookID: b.ID, Text: b.ID + " " + b.Title}}
		}
		entries = append(entries, es...)
	}
	if len(entries) == 0 {
		return nil, errors.New("catalog has nothing to index")
	}
	return entries, nil
}

// Prepare readies emb for queries against an index built elsewhere.
func Prepare(store *catalog.Store, ch domain.Chunker, emb domain.Embedder) error {
	entries, err := Entries(store, ch)
	if err != nil {
		return err
	}
	_, err = prepare(entries, emb)
	return err
}

func prepare(entries []domain.IndexEntry, emb domain.Embedder) ([]string, error) {
	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Text
	}
	if err := emb.Prepare(texts); err != nil {
		return nil, fmt.Errorf("prepare %s embedder: %w", emb.Name(), err)
	}
	return texts, nil
}

// Build chunks every catalog description, prepares the embedder over the
// resulting texts, embeds them and replaces the store contents.
func Build(ctx context.Context, store *catalog.Store, ch domain.Chunker, emb domain.Embedder, vs vectorstore.Storage, log *zap.Logger) (Stats, error) {
	if log == nil {
		log = zap.NewNop()
	}
	start := time.Now()
	entries, err := Entries(store, ch)
	if err != nil {
		return Stats{}, err
	}
	texts, err := prepare(entries, emb)
	if err != nil {
		return Stats{}, err
	}
	vectors := make([][]float64, len(entries))
	for i := range entries {
		vec, err := emb.Embed(ctx, texts[i])
		if err != nil {
			return Stats{}, fmt.Errorf("embed %s: %w", entries[i].ID, err)
		}
		vectors[i] = vec
	}
	dim := len(vectors[0])
	if err := vs.Clear(ctx); err != nil {
		return Stats{}, fmt.Errorf("clear store: %w", err)
	}
	if err := vs.Init(ctx, dim); err != nil {
		return Stats{}, fmt.Errorf("init store: %w", err)
	}
	for lo := 0; lo < len(entries); lo += upsertBatch {
		hi := min(lo+upsertBatch, len(entries))
		if err := vs.Upsert(ctx, entries[lo:hi], vectors[lo:hi]); err != nil {
			return Stats{}, fmt.Errorf("upsert: %w", err)
		}
	}
	st := Stats{Books: store.Len(), Entries: len(entries), Dimension: dim, Elapsed: time.Since(start)}
	log.Info("index built",
		zap.String("embedder", emb.Name()),
		zap.Int("books", st.Books),
		zap.Int("entries", st.Entries),
		zap.Int("dimension", st.Dimension),
		zap.Duration("elapsed", st.Elapsed),
	)
	return st, nil
}

// Package catalog holds the immutable book catalog produced by the offline
// pipeline and the filter facets derived from it.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"bookrec/internal/domain"
)

// Store is a read-only table of books keyed by id. It is safe for
// concurrent use because nothing writes to it after New returns.
type Store struct {
	books      []domain.Book
	byID       map[string]int
	categories map[domain.Category]struct{}
	facets     Facets
}

// Facets are the filter values offered to callers, "All" first.
type Facets struct {
	Categories []domain.Category
	Tones      []domain.Tone
}

// New builds a store from fully populated records. Insertion order is kept
// and used as the ranking tie-break.
func New(books []domain.Book) (*Store, error) {
	s := &Store{
		books:      make([]domain.Book, 0, len(books)),
		byID:       make(map[string]int, len(books)),
		categories: make(map[domain.Category]struct{}),
	}
	for _, b := range books {
		b.ID = strings.TrimSpace(b.ID)
		if b.ID == "" {
			return nil, errors.New("catalog: book with empty id")
		}
		if _, dup := s.byID[b.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate book id %q", b.ID)
		}
		if strings.TrimSpace(string(b.Category)) == "" || b.Category == domain.CategoryAll {
			b.Category = domain.CategoryUnknown
		}
		if b.DominantTone == "" || b.DominantTone == domain.ToneAll || !b.DominantTone.Valid() {
			b.DominantTone = domain.ToneUnknown
		}
		s.byID[b.ID] = len(s.books)
		s.books = append(s.books, b)
		s.categories[b.Category] = struct{}{}
	}
	s.facets = s.buildFacets()
	return s, nil
}

// Get returns the book with the given id.
func (s *Store) Get(id string) (domain.Book, bool) {
	i, ok := s.byID[id]
	if !ok {
		return domain.Book{}, false
	}
	return s.books[i], true
}

// Lookup resolves a possibly partial key from the vector index: an exact id,
// or a tagged text whose first token is the id.
func (s *Store) Lookup(key string) (domain.Book, int, bool) {
	key = strings.TrimSpace(key)
	if i, ok := s.byID[key]; ok {
		return s.books[i], i, true
	}
	fields := strings.Fields(key)
	if len(fields) == 0 {
		return domain.Book{}, -1, false
	}
	if i, ok := s.byID[strings.Trim(fields[0], `"'`)]; ok {
		return s.books[i], i, true
	}
	return domain.Book{}, -1, false
}

// All returns the books in insertion order. The slice must not be modified.
func (s *Store) All() []domain.Book { return s.books }

// Len returns the number of books.
func (s *Store) Len() int { return len(s.books) }

// HasCategory reports whether c labels at least one book.
func (s *Store) HasCategory(c domain.Category) bool {
	_, ok := s.categories[c]
	return ok
}

// Categories returns the closed category set, without "All".
func (s *Store) Categories() []domain.Category {
	return append([]domain.Category(nil), s.facets.Categories[1:]...)
}

// Facets returns the filter values. Categories are sorted lexically, tones
// follow the enum order; only values present in the catalog are listed.
func (s *Store) Facets() Facets {
	return Facets{
		Categories: append([]domain.Category(nil), s.facets.Categories...),
		Tones:      append([]domain.Tone(nil), s.facets.Tones...),
	}
}

func (s *Store) buildFacets() Facets {
	cats := make([]domain.Category, 0, len(s.categories))
	for c := range s.categories {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

	present := make(map[domain.Tone]struct{})
	for _, b := range s.books {
		present[b.DominantTone] = struct{}{}
	}
	tones := []domain.Tone{domain.ToneAll}
	order := append(append([]domain.Tone(nil), domain.ScoredTones...), domain.ToneUnknown)
	for _, t := range order {
		if _, ok := present[t]; ok {
			tones = append(tones, t)
		}
	}
	return Facets{
		Categories: append([]domain.Category{domain.CategoryAll}, cats...),
		Tones:      tones,
	}
}

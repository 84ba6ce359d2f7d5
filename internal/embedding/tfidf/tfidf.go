// Package tfidf embeds text locally with a TF-IDF model fitted on the
// catalog's indexed texts. It needs no network and is the default embedder.
package tfidf

import (
	"context"
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

// model is immutable once fitted; Prepare swaps it in whole.
type model struct {
	vocabulary map[string]int
	idf        []float64
}

// Embedder produces L2-normalized vectors with sublinear term frequency.
// Queries with no known terms embed to the zero vector.
type Embedder struct {
	mu        sync.RWMutex
	model     *model
	stopwords map[string]struct{}
}

// NewEmbedder creates an unprepared TF-IDF embedder.
func NewEmbedder() *Embedder {
	return &Embedder{stopwords: defaultStopwords()}
}

func (e *Embedder) Name() string { return "tfidf" }

// Prepare fits the vocabulary and smoothed IDF weights on corpus. It may be
// called again to refit after the catalog changes.
func (e *Embedder) Prepare(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("tfidf: empty corpus")
	}
	df := e.documentFrequencies(corpus)
	if len(df) == 0 {
		return errors.New("tfidf: no indexable terms in corpus")
	}
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	m := &model{
		vocabulary: make(map[string]int, len(terms)),
		idf:        make([]float64, len(terms)),
	}
	n := float64(len(corpus))
	for i, term := range terms {
		m.vocabulary[term] = i
		m.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	e.mu.Lock()
	e.model = m
	e.mu.Unlock()
	return nil
}

// Dimension is the vocabulary size, 0 before Prepare.
func (e *Embedder) Dimension() int {
	m := e.current()
	if m == nil {
		return 0
	}
	return len(m.idf)
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := e.current()
	if m == nil {
		return nil, errors.New("tfidf: embedder not prepared")
	}
	counts := make(map[int]int)
	for _, tok := range e.tokenize(text) {
		if idx, ok := m.vocabulary[tok]; ok {
			counts[idx]++
		}
	}
	vec := make([]float64, len(m.idf))
	if len(counts) == 0 {
		return vec, nil
	}
	sum := 0.0
	for idx, c := range counts {
		w := (1 + math.Log(float64(c))) * m.idf[idx]
		vec[idx] = w
		sum += w * w
	}
	norm := math.Sqrt(sum)
	for idx := range counts {
		vec[idx] /= norm
	}
	return vec, nil
}

func (e *Embedder) current() *model {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.model
}

func (e *Embedder) documentFrequencies(corpus []string) map[string]int {
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range e.tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	return df
}

// tokenize lowercases and keeps letter runs, so the numeric id prefix of an
// indexed text never enters the vocabulary.
func (e *Embedder) tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, stop := e.stopwords[t]; !stop {
			out = append(out, t)
		}
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by",
		"with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that", "these",
		"those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into",
		"about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own",
		"same", "too", "very", "can", "will", "just", "should", "now", "he", "she", "his", "her", "they",
		"their", "who", "when", "what", "where", "all", "one", "has", "have", "had",
		"book", "books", "novel", "story", "i", "me", "my", "want", "like", "something", "read",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

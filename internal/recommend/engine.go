// Package recommend turns a free-text query plus filters into a ranked,
// deduplicated list of catalog books.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"bookrec/internal/catalog"
	"bookrec/internal/domain"
	"bookrec/internal/filter"
)

// Embedder is the query-side subset of domain.Embedder.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Config bounds result sizes and external call latency.
type Config struct {
	DefaultLimit    int
	MaxLimit        int
	OverfetchFactor int
	MaxCandidates   int
	EmbedTimeout    time.Duration
	SearchTimeout   time.Duration
}

// DefaultConfig returns the limits used when none are configured.
func DefaultConfig() Config {
	return Config{
		DefaultLimit:    12,
		MaxLimit:        48,
		OverfetchFactor: 4,
		MaxCandidates:   200,
		EmbedTimeout:    10 * time.Second,
		SearchTimeout:   5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = d.DefaultLimit
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = d.MaxLimit
	}
	if c.DefaultLimit > c.MaxLimit {
		c.DefaultLimit = c.MaxLimit
	}
	if c.OverfetchFactor <= 1 {
		c.OverfetchFactor = d.OverfetchFactor
	}
	if c.MaxCandidates <= c.MaxLimit {
		c.MaxCandidates = c.MaxLimit * c.OverfetchFactor
	}
	if c.EmbedTimeout <= 0 {
		c.EmbedTimeout = d.EmbedTimeout
	}
	if c.SearchTimeout <= 0 {
		c.SearchTimeout = d.SearchTimeout
	}
	return c
}

// Engine is stateless per call and safe for concurrent use.
type Engine struct {
	embedder Embedder
	index    domain.VectorIndex
	store    *catalog.Store
	policy   *filter.Policy
	cfg      Config
	log      *zap.Logger
}

// New wires an engine. A nil logger disables logging.
func New(embedder Embedder, index domain.VectorIndex, store *catalog.Store, cfg Config, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		embedder: embedder,
		index:    index,
		store:    store,
		policy:   filter.NewPolicy(store),
		cfg:      cfg.withDefaults(),
		log:      log.Named("recommend"),
	}
}

// Config returns the effective limits.
func (e *Engine) Config() Config { return e.cfg }

type candidate struct {
	book  domain.Book
	score float64
	pos   int
}

// Recommend runs embed → search → map → rank → filter → dedupe → truncate.
// An empty result with a nil error means nothing matched.
func (e *Engine) Recommend(ctx context.Context, q domain.Query) ([]domain.Recommendation, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: query text is empty", domain.ErrInvalidQuery)
	}
	limit, err := e.limit(q.Limit)
	if err != nil {
		return nil, err
	}
	criteria := filter.Criteria{Category: q.Category, Tone: q.Tone}
	if criteria.Category == "" {
		criteria.Category = domain.CategoryAll
	}
	if criteria.Tone == "" {
		criteria.Tone = domain.ToneAll
	}
	if err := e.policy.Validate(criteria); err != nil {
		return nil, err
	}

	start := time.Now()
	vec, err := e.embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if isZero(vec) {
		e.log.Debug("query has no embedding signal", zap.String("query", text))
		return []domain.Recommendation{}, nil
	}

	k := e.candidateCount(limit)
	hits, err := e.search(ctx, vec, k)
	if err != nil {
		return nil, err
	}

	cands := make([]candidate, 0, len(hits))
	stale := 0
	for _, h := range hits {
		b, pos, ok := e.store.Lookup(h.Entry.Key())
		if !ok {
			stale++
			continue
		}
		cands = append(cands, candidate{book: b, score: h.Score, pos: pos})
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].pos < cands[j].pos
	})

	out := make([]domain.Recommendation, 0, limit)
	seen := make(map[string]struct{}, limit)
	for i := range cands {
		c := &cands[i]
		if !criteria.Match(&c.book) {
			continue
		}
		if _, dup := seen[c.book.ID]; dup {
			continue
		}
		seen[c.book.ID] = struct{}{}
		out = append(out, domain.Recommendation{Book: c.book, Score: c.score})
		if len(out) == limit {
			break
		}
	}

	e.log.Info("recommendations retrieved",
		zap.String("query", text),
		zap.String("category", string(criteria.Category)),
		zap.String("tone", string(criteria.Tone)),
		zap.Int("requested", k),
		zap.Int("hits", len(hits)),
		zap.Int("stale", stale),
		zap.Int("results", len(out)),
		zap.Duration("took", time.Since(start)),
	)
	return out, nil
}

func (e *Engine) limit(n int) (int, error) {
	switch {
	case n < 0:
		return 0, fmt.Errorf("%w: result limit must be positive, got %d", domain.ErrInvalidQuery, n)
	case n == 0:
		return e.cfg.DefaultLimit, nil
	case n > e.cfg.MaxLimit:
		return e.cfg.MaxLimit, nil
	}
	return n, nil
}

// candidateCount over-fetches to leave headroom for filtering and dedupe.
func (e *Engine) candidateCount(limit int) int {
	k := limit * e.cfg.OverfetchFactor
	if k > e.cfg.MaxCandidates {
		k = e.cfg.MaxCandidates
	}
	if k <= limit {
		k = limit + 1
	}
	return k
}

func (e *Engine) embed(ctx context.Context, text string) ([]float64, error) {
	cctx, cancel := context.WithTimeout(ctx, e.cfg.EmbedTimeout)
	defer cancel()
	vec, err := e.embedder.Embed(cctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.log.Warn("embedding failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: provider returned an empty vector", domain.ErrEmbeddingUnavailable)
	}
	return vec, nil
}

func (e *Engine) search(ctx context.Context, vec []float64, k int) ([]domain.SearchResult, error) {
	cctx, cancel := context.WithTimeout(ctx, e.cfg.SearchTimeout)
	defer cancel()
	hits, err := e.index.Search(cctx, vec, k)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.log.Warn("vector search failed", zap.Error(err))
		if errors.Is(err, domain.ErrIndexUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	return hits, nil
}

func isZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

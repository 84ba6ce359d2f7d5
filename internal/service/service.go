// Package service is the boundary used by the HTTP API and the terminal UI.
// It parses raw filter strings and shapes results for display.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"bookrec/internal/catalog"
	"bookrec/internal/domain"
	"bookrec/internal/filter"
	"bookrec/internal/metrics"
	"bookrec/internal/summarizer"
)

// Recommender is satisfied by *recommend.Engine.
type Recommender interface {
	Recommend(ctx context.Context, q domain.Query) ([]domain.Recommendation, error)
}

// Highlighter picks the description sentence closest to the query.
type Highlighter interface {
	BestSentence(text, query string) string
}

// Filters lists the values accepted by Recommend, "All" first.
type Filters struct {
	Categories []string `json:"categories"`
	Tones      []string `json:"tones"`
}

// RecommendRequest carries unparsed filter values. Empty strings mean "All".
type RecommendRequest struct {
	Query    string
	Category string
	Tone     string
	Limit    int
}

// BookView is the serializable card for one recommended book.
type BookView struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	AuthorsLine   string   `json:"authors_line"`
	Category      string   `json:"category"`
	Tone          string   `json:"tone"`
	Description   string   `json:"description"`
	Teaser        string   `json:"teaser"`
	Highlight     string   `json:"highlight,omitempty"`
	CoverURL      string   `json:"cover_url"`
	PublishedDate string   `json:"published_date,omitempty"`
	Publisher     string   `json:"publisher,omitempty"`
	PageCount     int      `json:"page_count,omitempty"`
	AverageRating float64  `json:"average_rating,omitempty"`
	Score         float64  `json:"score"`
}

type Service struct {
	engine    Recommender
	store     *catalog.Store
	policy    *filter.Policy
	teaser    *summarizer.Teaser
	highlight Highlighter
	log       *zap.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithTeaser replaces the default 30-word truncating teaser.
func WithTeaser(t *summarizer.Teaser) Option { return func(s *Service) { s.teaser = t } }

// WithHighlighter enables best-sentence highlighting in views.
func WithHighlighter(h Highlighter) Option { return func(s *Service) { s.highlight = h } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

func New(engine Recommender, store *catalog.Store, opts ...Option) *Service {
	s := &Service{
		engine: engine,
		store:  store,
		policy: filter.NewPolicy(store),
		teaser: summarizer.NewTeaser(nil, 1, 30),
		log:    zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.Named("service")
	return s
}

// ListFilters returns the category and tone facets of the catalog.
func (s *Service) ListFilters() Filters {
	f := s.store.Facets()
	out := Filters{
		Categories: make([]string, len(f.Categories)),
		Tones:      make([]string, len(f.Tones)),
	}
	for i, c := range f.Categories {
		out.Categories[i] = string(c)
	}
	for i, t := range f.Tones {
		out.Tones[i] = string(t)
	}
	return out
}

// CatalogSize returns the number of books in the catalog.
func (s *Service) CatalogSize() int { return s.store.Len() }

// Recommend parses the request filters and delegates to the engine. Filter
// values are matched exactly against ListFilters; unknown values fail with
// ErrInvalidFilter before any external call is made.
func (s *Service) Recommend(ctx context.Context, req RecommendRequest) (recs []domain.Recommendation, err error) {
	start := time.Now()
	defer func() { metrics.ObserveRecommend(start, len(recs), err) }()

	criteria, err := s.parse(req.Category, req.Tone)
	if err != nil {
		s.log.Debug("rejected filters", zap.String("category", req.Category), zap.String("tone", req.Tone), zap.Error(err))
		return nil, err
	}
	return s.engine.Recommend(ctx, domain.Query{
		Text:     req.Query,
		Category: criteria.Category,
		Tone:     criteria.Tone,
		Limit:    req.Limit,
	})
}

// Browse lists catalog books matching the filters in catalog order, without
// a query. limit <= 0 returns every match.
func (s *Service) Browse(category, tone string, limit int) ([]domain.Book, error) {
	criteria, err := s.parse(category, tone)
	if err != nil {
		return nil, err
	}
	books, err := s.policy.Apply(s.store.All(), criteria)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(books) > limit {
		books = books[:limit]
	}
	return books, nil
}

// Views renders recommendations as cards. query drives the highlight.
func (s *Service) Views(recs []domain.Recommendation, query string) []BookView {
	out := make([]BookView, len(recs))
	for i, r := range recs {
		out[i] = s.View(r.Book, query)
		out[i].Score = r.Score
	}
	return out
}

// View renders one book.
func (s *Service) View(b domain.Book, query string) BookView {
	v := BookView{
		ID:            b.ID,
		Title:         b.Title,
		Authors:       b.Authors,
		AuthorsLine:   AuthorsLine(b.Authors),
		Category:      string(b.Category),
		Tone:          string(b.DominantTone),
		Description:   b.Description,
		Teaser:        s.teaser.Make(b.Description),
		CoverURL:      b.CoverURL,
		PublishedDate: b.PublishedDate,
		Publisher:     b.Publisher,
		PageCount:     b.PageCount,
		AverageRating: b.AverageRating,
	}
	if v.Authors == nil {
		v.Authors = []string{}
	}
	if s.highlight != nil && strings.TrimSpace(query) != "" {
		v.Highlight = s.highlight.BestSentence(b.Description, query)
	}
	return v
}

// AuthorsLine joins author names for display: "A", "A and B", "A, B and C".
func AuthorsLine(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return authors[0]
	case 2:
		return authors[0] + " and " + authors[1]
	}
	return strings.Join(authors[:len(authors)-1], ", ") + " and " + authors[len(authors)-1]
}

// parse resolves raw filter values. Both must equal a listed value exactly,
// surrounding whitespace aside; the empty string means "All".
func (s *Service) parse(category, tone string) (filter.Criteria, error) {
	c := filter.Criteria{Category: domain.CategoryAll, Tone: domain.ToneAll}
	if cat := domain.Category(strings.TrimSpace(category)); cat != "" && cat != domain.CategoryAll {
		if !s.store.HasCategory(cat) {
			return filter.Criteria{}, fmt.Errorf("%w: unknown category %q", domain.ErrInvalidFilter, cat)
		}
		c.Category = cat
	}
	raw := strings.TrimSpace(tone)
	t, err := domain.ParseTone(raw)
	if err != nil {
		return filter.Criteria{}, err
	}
	if raw != "" && string(t) != raw {
		return filter.Criteria{}, fmt.Errorf("%w: unknown tone %q, did you mean %q", domain.ErrInvalidFilter, raw, t)
	}
	c.Tone = t
	return c, nil
}

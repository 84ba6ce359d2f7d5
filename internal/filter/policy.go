// Package filter narrows similarity-ordered candidates by category and tone.
package filter

import (
	"fmt"

	"bookrec/internal/domain"
)

// Criteria is a conjunction of exact-match constraints. "All" on either
// dimension means no constraint.
type Criteria struct {
	Category domain.Category
	Tone     domain.Tone
}

// Any returns criteria that match every book.
func Any() Criteria {
	return Criteria{Category: domain.CategoryAll, Tone: domain.ToneAll}
}

// Match reports whether b satisfies both constraints.
func (c Criteria) Match(b *domain.Book) bool {
	if c.Category != domain.CategoryAll && c.Category != "" && b.Category != c.Category {
		return false
	}
	if c.Tone != domain.ToneAll && c.Tone != "" && b.DominantTone != c.Tone {
		return false
	}
	return true
}

// CategorySet is satisfied by catalog.Store.
type CategorySet interface {
	HasCategory(c domain.Category) bool
}

// Policy validates criteria against the closed value sets and applies them.
type Policy struct {
	categories CategorySet
}

// NewPolicy returns a policy whose category set is the catalog's.
func NewPolicy(categories CategorySet) *Policy {
	return &Policy{categories: categories}
}

// Validate fails with domain.ErrInvalidFilter for values outside the closed sets.
func (p *Policy) Validate(c Criteria) error {
	if c.Category != domain.CategoryAll && c.Category != "" && !p.categories.HasCategory(c.Category) {
		return fmt.Errorf("%w: unknown category %q", domain.ErrInvalidFilter, c.Category)
	}
	if c.Tone != "" && !c.Tone.Valid() {
		return fmt.Errorf("%w: unknown tone %q", domain.ErrInvalidFilter, c.Tone)
	}
	return nil
}

// Apply keeps the books matching c, in their original order.
func (p *Policy) Apply(books []domain.Book, c Criteria) ([]domain.Book, error) {
	if err := p.Validate(c); err != nil {
		return nil, err
	}
	out := make([]domain.Book, 0, len(books))
	for i := range books {
		if c.Match(&books[i]) {
			out = append(out, books[i])
		}
	}
	return out, nil
}

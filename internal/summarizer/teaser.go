package summarizer

import (
	"strings"

	"bookrec/internal/domain"
)

// Teaser shortens book descriptions for result cards.
type Teaser struct {
	summarizer   domain.Summarizer
	maxSentences int
	maxWords     int
}

// NewTeaser returns a teaser capped at maxWords words. A nil summarizer
// truncates the description as is.
func NewTeaser(s domain.Summarizer, maxSentences, maxWords int) *Teaser {
	if maxWords <= 0 {
		maxWords = 30
	}
	if maxSentences <= 0 {
		maxSentences = 1
	}
	return &Teaser{summarizer: s, maxSentences: maxSentences, maxWords: maxWords}
}

// New builds the teaser for typ: "frequency" ranks sentences first, "truncate"
// keeps the leading words.
func New(typ string, maxSentences, maxWords int) *Teaser {
	if typ == "truncate" {
		return NewTeaser(nil, maxSentences, maxWords)
	}
	return NewTeaser(NewFrequencySummarizer(), maxSentences, maxWords)
}

// Make returns the teaser for description. Summarizer failures fall back to
// plain truncation.
func (t *Teaser) Make(description string) string {
	text := strings.TrimSpace(description)
	if t.summarizer != nil {
		if s, err := t.summarizer.Summarize(text, t.maxSentences); err == nil && s != "" {
			text = s
		}
	}
	return Truncate(text, t.maxWords)
}

// Truncate keeps the first n words, appending "..." when words were dropped.
func Truncate(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "..."
}

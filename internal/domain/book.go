package domain

import (
	"fmt"
	"strings"
)

// Category is a catalog category label. The set of valid labels is the set
// present in the loaded catalog.
type Category string

const (
	// CategoryAll applies no category constraint.
	CategoryAll Category = "All"
	// CategoryUnknown labels books that arrived without a category.
	CategoryUnknown Category = "Unknown"
)

// Tone is the dominant emotional register of a book.
type Tone string

const (
	ToneAll         Tone = "All"
	ToneHappy       Tone = "Happy"
	ToneSurprising  Tone = "Surprising"
	ToneAngry       Tone = "Angry"
	ToneSuspenseful Tone = "Suspenseful"
	ToneSad         Tone = "Sad"
	ToneUnknown     Tone = "Unknown"
)

// ScoredTones lists the tones that carry an emotion score, in presentation order.
var ScoredTones = []Tone{ToneHappy, ToneSurprising, ToneAngry, ToneSuspenseful, ToneSad}

var emotionColumns = map[Tone]string{
	ToneHappy:       "joy",
	ToneSurprising:  "surprise",
	ToneAngry:       "anger",
	ToneSuspenseful: "fear",
	ToneSad:         "sadness",
}

// Emotion returns the emotion classifier label backing the tone, or "" for
// the sentinels.
func (t Tone) Emotion() string { return emotionColumns[t] }

// Valid reports whether t is a member of the closed tone set, "All" included.
func (t Tone) Valid() bool {
	switch t {
	case ToneAll, ToneUnknown:
		return true
	}
	_, ok := emotionColumns[t]
	return ok
}

// ParseTone parses a filter or catalog value. The empty string means "All".
func ParseTone(s string) (Tone, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ToneAll, nil
	}
	for _, t := range append([]Tone{ToneAll, ToneUnknown}, ScoredTones...) {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown tone %q", ErrInvalidFilter, s)
}

// Book is one catalog title, fully populated by the offline pipeline.
type Book struct {
	ID            string
	Title         string
	Authors       []string
	Description   string
	Category      Category
	DominantTone  Tone
	ToneScores    map[Tone]float64
	CoverURL      string
	PublishedDate string
	Publisher     string
	PageCount     int
	AverageRating float64
}

// Query is a single recommendation request.
type Query struct {
	Text     string
	Category Category
	Tone     Tone
	Limit    int
}

// Recommendation is a ranked book with the similarity score it was ranked by.
type Recommendation struct {
	Book  Book
	Score float64
}

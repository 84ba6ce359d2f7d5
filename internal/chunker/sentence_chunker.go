package chunker

import (
	"regexp"
	"strconv"
	"strings"

	"bookrec/internal/domain"
)

// SentenceChunker splits a book's indexed text into sentence-based entries with overlap.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
	splitter          *regexp.Regexp
}

func NewSentenceChunker(sentencesPerChunk, overlapSentences int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	// overlap must leave room to advance
	if overlapSentences >= sentencesPerChunk {
		overlapSentences = sentencesPerChunk - 1
	}
	return &SentenceChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
		splitter:          regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
	}
}

// Chunk splits a book description into entries keyed "<bookID>:<n>". Each
// entry text is tagged with the book id so the id survives in the index payload.
func (c *SentenceChunker) Chunk(bookID, text string) ([]domain.IndexEntry, error) {
	body := strings.TrimSpace(text)
	var sentences []string
	last := 0
	for _, loc := range c.splitter.FindAllStringIndex(body, -1) {
		sentences = append(sentences, body[loc[0]:loc[1]])
		last = loc[1]
	}
	// trailing text without terminal punctuation
	if rest := strings.TrimSpace(body[last:]); rest != "" {
		sentences = append(sentences, rest)
	}
	if len(sentences) == 0 {
		return nil, nil
	}
	for i := range sentences {
		sentences[i] = strings.TrimSpace(sentences[i])
	}
	var entries []domain.IndexEntry
	i := 0
	idx := 0
	for i < len(sentences) {
		end := i + c.sentencesPerChunk
		if end > len(sentences) {
			end = len(sentences)
		}
		entries = append(entries, entry(bookID, idx, strings.Join(sentences[i:end], " ")))
		if end == len(sentences) {
			break
		}
		i = end - c.overlapSentences
		idx++
	}
	return entries, nil
}

// WholeChunker indexes the whole text as a single entry.
type WholeChunker struct{}

func (WholeChunker) Chunk(bookID, text string) ([]domain.IndexEntry, error) {
	body := strings.TrimSpace(text)
	if body == "" {
		return nil, nil
	}
	return []domain.IndexEntry{entry(bookID, 0, body)}, nil
}

// New returns the chunker for typ ("sentence", "none" or "").
func New(typ string, sentencesPerChunk, overlapSentences int) domain.Chunker {
	if typ == "none" {
		return WholeChunker{}
	}
	return NewSentenceChunker(sentencesPerChunk, overlapSentences)
}

func entry(bookID string, idx int, text string) domain.IndexEntry {
	return domain.IndexEntry{
		ID:     bookID + ":" + strconv.Itoa(idx),
		BookID: bookID,
		Text:   bookID + " " + text,
		Index:  idx,
	}
}

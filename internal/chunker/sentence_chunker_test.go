package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentenceChunker_SplitsWithOverlap(t *testing.T) {
	c := NewSentenceChunker(2, 1)
	entries, err := c.Chunk("42", "One. Two! Three? Four.")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "42:0", entries[0].ID)
	assert.Equal(t, "42", entries[0].BookID)
	assert.Equal(t, "42 One. Two!", entries[0].Text)
	assert.Equal(t, "42 Two! Three?", entries[1].Text)
	assert.Equal(t, "42 Three? Four.", entries[2].Text)
	assert.Equal(t, 2, entries[2].Index)
}

func TestSentenceChunker_KeepsTrailingFragment(t *testing.T) {
	c := NewSentenceChunker(5, 0)
	entries, err := c.Chunk("7", "A whole sentence. and a dangling tail")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "7 A whole sentence. and a dangling tail", entries[0].Text)
}

func TestSentenceChunker_NoPunctuationAndEmpty(t *testing.T) {
	c := NewSentenceChunker(3, 1)
	entries, err := c.Chunk("9", "just words")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "9 just words", entries[0].Text)

	entries, err = c.Chunk("9", "   ")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSentenceChunker_OverlapClamped(t *testing.T) {
	c := NewSentenceChunker(1, 3)
	entries, err := c.Chunk("x", "A. B. C.")
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestWholeChunker(t *testing.T) {
	c := New("none", 0, 0)
	entries, err := c.Chunk("5", "First. Second.")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "5:0", entries[0].ID)
	assert.Equal(t, "5 First. Second.", entries[0].Text)

	_, isSentence := New("sentence", 2, 0).(*SentenceChunker)
	assert.True(t, isSentence)
}

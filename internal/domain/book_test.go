package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTone(t *testing.T) {
	cases := map[string]Tone{
		"":            ToneAll,
		"All":         ToneAll,
		"happy":       ToneHappy,
		" Sad ":       ToneSad,
		"Suspenseful": ToneSuspenseful,
		"unknown":     ToneUnknown,
	}
	for in, want := range cases {
		got, err := ParseTone(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseTone("Gloomy")
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestToneEmotion(t *testing.T) {
	assert.Equal(t, "fear", ToneSuspenseful.Emotion())
	assert.Equal(t, "", ToneAll.Emotion())
	assert.True(t, ToneUnknown.Valid())
	assert.False(t, Tone("Gloomy").Valid())
}

func TestIndexEntryKey(t *testing.T) {
	assert.Equal(t, "978", IndexEntry{BookID: "978", Text: "x"}.Key())
	assert.Equal(t, "978 a tale", IndexEntry{Text: "978 a tale"}.Key())
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(fmt.Errorf("%w: timeout", ErrEmbeddingUnavailable)))
	assert.True(t, Retryable(ErrIndexUnavailable))
	assert.False(t, Retryable(ErrInvalidQuery))
}

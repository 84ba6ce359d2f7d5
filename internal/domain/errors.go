package domain

import "errors"

var (
	ErrInvalidQuery         = errors.New("invalid query")
	ErrInvalidFilter        = errors.New("invalid filter")
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	ErrIndexUnavailable     = errors.New("vector index unavailable")
)

// Retryable reports whether err is a transient external-service failure
// the caller may retry.
func Retryable(err error) bool {
	return errors.Is(err, ErrEmbeddingUnavailable) || errors.Is(err, ErrIndexUnavailable)
}

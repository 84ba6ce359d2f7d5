package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"bookrec/internal/domain"
)

// BreakerConfig configures the circuit breaker around a remote embedder.
type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
}

// Breaker wraps an embedder so that a provider that keeps failing is not
// called again until Timeout has passed. While open, Embed fails fast.
type Breaker struct {
	domain.Embedder
	cb *gobreaker.CircuitBreaker[[]float64]
}

// NewBreaker wraps next. A zero FailureThreshold defaults to 5.
func NewBreaker(next domain.Embedder, cfg BreakerConfig, log *zap.Logger) *Breaker {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Name == "" {
		cfg.Name = next.Name()
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("embedding circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// Callers abandoning a request say nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	return &Breaker{Embedder: next, cb: gobreaker.NewCircuitBreaker[[]float64](settings)}
}

// Embed calls the wrapped embedder through the breaker.
func (b *Breaker) Embed(ctx context.Context, text string) ([]float64, error) {
	v, err := b.cb.Execute(func() ([]float64, error) {
		return b.Embedder.Embed(ctx, text)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return v, err
}

// State reports the breaker state for health checks.
func (b *Breaker) State() string { return b.cb.State().String() }

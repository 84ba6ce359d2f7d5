// Package embedding assembles the configured text embedder.
package embedding

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"bookrec/internal/config"
	"bookrec/internal/domain"
	"bookrec/internal/embedding/openai"
	"bookrec/internal/embedding/tfidf"
)

// New builds the embedder selected by cfg.Type. Remote embedders are wrapped
// in a circuit breaker.
func New(cfg config.EmbedderConfig, log *zap.Logger) (domain.Embedder, error) {
	switch cfg.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder(), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:       cfg.OpenAI.BaseURL,
			APIKeyEnv:     cfg.OpenAI.APIKeyEnv,
			Model:         cfg.OpenAI.Model,
			Timeout:       time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			MaxRetries:    cfg.OpenAI.Retries(),
			AllowEmptyKey: cfg.OpenAI.AllowEmptyKey,

			RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
			Burst:             cfg.OpenAI.Burst,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return NewBreaker(client, BreakerConfig{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			MaxRequests:      cfg.Breaker.HalfOpenRequests,
			Interval:         time.Duration(cfg.Breaker.IntervalSecs) * time.Second,
			Timeout:          time.Duration(cfg.Breaker.OpenSecs) * time.Second,
		}, log), nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

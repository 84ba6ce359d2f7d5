package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"bookrec/internal/domain"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "invalid", Outcome(fmt.Errorf("%w: x", domain.ErrInvalidFilter)))
	assert.Equal(t, "invalid", Outcome(domain.ErrInvalidQuery))
	assert.Equal(t, "embedding_unavailable", Outcome(fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, errors.New("503"))))
	assert.Equal(t, "index_unavailable", Outcome(domain.ErrIndexUnavailable))
	assert.Equal(t, "error", Outcome(context.Canceled))
}

func TestObserveRecommend(t *testing.T) {
	before := testutil.ToFloat64(RecommendationsTotal.WithLabelValues("index_unavailable"))
	ObserveRecommend(time.Now(), 0, domain.ErrIndexUnavailable)
	assert.InDelta(t, before+1, testutil.ToFloat64(RecommendationsTotal.WithLabelValues("index_unavailable")), 1e-9)
}

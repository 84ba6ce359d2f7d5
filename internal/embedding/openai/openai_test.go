package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, url string, retries int) *Client {
	t.Helper()
	t.Setenv("BOOKREC_TEST_KEY", "secret")
	c, err := NewClient(Config{BaseURL: url, APIKeyEnv: "BOOKREC_TEST_KEY", Model: "m", MaxRetries: retries})
	require.NoError(t, err)
	return c
}

func TestNewClient_MissingKey(t *testing.T) {
	t.Setenv("BOOKREC_EMPTY_KEY", "")
	_, err := NewClient(Config{APIKeyEnv: "BOOKREC_EMPTY_KEY"})
	assert.Error(t, err)

	c, err := NewClient(Config{APIKeyEnv: "BOOKREC_EMPTY_KEY", AllowEmptyKey: true})
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Name())
}

func TestEmbed_OpenAIShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var body reqBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "space opera", body.Input)
		assert.Equal(t, "m", body.Model)
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/", 0)
	v, err := c.Embed(context.Background(), "space opera")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, v)
	assert.Equal(t, 3, c.Dimension())
}

func TestEmbed_OllamaShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"embedding":[1,2]}`))
	}))
	defer srv.Close()

	v, err := newTestClient(t, srv.URL, 0).Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, v)
}

func TestEmbed_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1]}]}`))
	}))
	defer srv.Close()

	v, err := newTestClient(t, srv.URL, 3).Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, v)
	assert.Equal(t, int32(3), calls.Load())
}

func TestEmbed_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 3).Embed(context.Background(), "x")
	assert.ErrorContains(t, err, "401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmbed_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 1).Embed(context.Background(), "x")
	assert.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmbed_ContextCancelStopsBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := newTestClient(t, srv.URL, 5).Embed(ctx, "x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, retryDelay(0))
	assert.Equal(t, 400*time.Millisecond, retryDelay(1))
	assert.Equal(t, 5*time.Second, retryDelay(10))
	assert.Equal(t, 200*time.Millisecond, retryDelay(-3))
	for _, attempt := range []int{36, 40, 64, 1000} {
		assert.Equal(t, 5*time.Second, retryDelay(attempt), attempt)
	}
}

func TestEmbed_RateLimiterHonorsContext(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	t.Setenv("BOOKREC_TEST_KEY", "secret")
	c, err := NewClient(Config{BaseURL: srv.URL, APIKeyEnv: "BOOKREC_TEST_KEY", RequestsPerSecond: 0.001, Burst: 1})
	require.NoError(t, err)

	_, err = c.Embed(context.Background(), "first")
	require.NoError(t, err)

	// the second token is ~17 minutes away; the limiter refuses to wait past the deadline
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Embed(ctx, "second")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

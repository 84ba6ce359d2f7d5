package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Retry bounds for the remote embedder.
const (
	DefaultMaxRetries = 2
	MaxRetriesLimit   = 10
)

// CatalogConfig locates the pre-built book catalog.
type CatalogConfig struct {
	Path            string `yaml:"path"`
	DefaultCover    string `yaml:"default_cover"`
	ThumbnailSuffix string `yaml:"thumbnail_suffix"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL       string `yaml:"base_url"`
	APIKeyEnv     string `yaml:"api_key_env"`
	Model         string `yaml:"model"`
	TimeoutSecs   int    `yaml:"timeout_secs"`
	AllowEmptyKey bool   `yaml:"allow_empty_key"`
	// MaxRetries is nil when unset; an explicit 0 disables retries.
	MaxRetries *int `yaml:"max_retries,omitempty"`
	// RequestsPerSecond paces calls to the provider; 0 disables pacing.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Retries returns the configured retry count, DefaultMaxRetries when unset.
func (c OpenAIEmbedderConfig) Retries() int {
	if c.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *c.MaxRetries
}

// BreakerConfig configures the circuit breaker in front of a remote embedder.
type BreakerConfig struct {
	FailureThreshold uint32 `yaml:"failure_threshold"`
	HalfOpenRequests uint32 `yaml:"half_open_requests"`
	IntervalSecs     int    `yaml:"interval_secs"`
	OpenSecs         int    `yaml:"open_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type    string                `yaml:"type"`
	OpenAI  *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
	Breaker BreakerConfig         `yaml:"breaker"`
}

// ChunkerConfig configures how indexed book texts are split into entries.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type         string          `yaml:"type"`
	BuildOnStart bool            `yaml:"build_on_start"`
	Qdrant       *QdrantConfig   `yaml:"qdrant,omitempty"`
	Postgres     *PostgresConfig `yaml:"postgres,omitempty"`
}

// NeedsBuild reports whether the index must be populated at start-up. An
// in-memory index is empty until built.
func (c VectorStoreConfig) NeedsBuild() bool {
	return c.BuildOnStart || c.Type == "memory" || c.Type == ""
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection"`
	Distance    string `yaml:"distance"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// PostgresConfig points at a PostgreSQL database with the pgvector extension.
type PostgresConfig struct {
	DSN    string `yaml:"dsn"`
	DSNEnv string `yaml:"dsn_env"`
	Table  string `yaml:"table"`
}

// RecommendConfig bounds result sizes and per-call latency.
type RecommendConfig struct {
	DefaultLimit      int `yaml:"default_limit"`
	MaxLimit          int `yaml:"max_limit"`
	OverfetchFactor   int `yaml:"overfetch_factor"`
	MaxCandidates     int `yaml:"max_candidates"`
	EmbedTimeoutSecs  int `yaml:"embed_timeout_secs"`
	SearchTimeoutSecs int `yaml:"search_timeout_secs"`
}

// SummarizerConfig configures the teaser shown on result cards.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
	MaxWords     int    `yaml:"max_words"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr               string   `yaml:"addr"`
	CORSOrigins        []string `yaml:"cors_origins"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute"`
	ShutdownSecs       int      `yaml:"shutdown_secs"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Path   string `yaml:"path,omitempty"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Catalog     CatalogConfig     `yaml:"catalog"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Recommend   RecommendConfig   `yaml:"recommend"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/bookrec/config.yaml.
// If neither exists, it writes defaults to ~/.config/bookrec/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "bookrec", "config.yaml"), nil
}

// Default returns the built-in configuration: local TF-IDF embeddings and an
// in-memory index built from the catalog at start-up.
func Default() *AppConfig {
	cfg := &AppConfig{
		Catalog: CatalogConfig{
			Path:            "books_with_emotions.csv",
			DefaultCover:    "cover-not-found.jpg",
			ThumbnailSuffix: "&fife=w800",
		},
		Embedder:    EmbedderConfig{Type: "tfidf"},
		Chunker:     ChunkerConfig{Type: "sentence", SentencesPerChunk: 5, OverlapSentences: 1},
		VectorStore: VectorStoreConfig{Type: "memory"},
		Recommend: RecommendConfig{
			DefaultLimit:      12,
			MaxLimit:          48,
			OverfetchFactor:   4,
			MaxCandidates:     200,
			EmbedTimeoutSecs:  10,
			SearchTimeoutSecs: 5,
		},
		Summarizer: SummarizerConfig{Type: "frequency", MaxSentences: 1, MaxWords: 30},
		Server: ServerConfig{
			Addr:               ":8000",
			CORSOrigins:        []string{"*"},
			RateLimitPerMinute: 120,
			ShutdownSecs:       10,
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 5
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.MaxRetries == nil {
			retries := DefaultMaxRetries
			cfg.Embedder.OpenAI.MaxRetries = &retries
		}
	}
	if cfg.Embedder.Breaker.FailureThreshold == 0 {
		cfg.Embedder.Breaker.FailureThreshold = 5
	}
	if cfg.Embedder.Breaker.OpenSecs == 0 {
		cfg.Embedder.Breaker.OpenSecs = 30
	}
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant != nil {
		if cfg.VectorStore.Qdrant.URL == "" {
			cfg.VectorStore.Qdrant.URL = "http://localhost:6333"
		}
		if cfg.VectorStore.Qdrant.Collection == "" {
			cfg.VectorStore.Qdrant.Collection = "books"
		}
		if cfg.VectorStore.Qdrant.TimeoutSecs == 0 {
			cfg.VectorStore.Qdrant.TimeoutSecs = 15
		}
		if cfg.VectorStore.Qdrant.APIKey == "" && cfg.VectorStore.Qdrant.APIKeyEnv != "" {
			cfg.VectorStore.Qdrant.APIKey = os.Getenv(cfg.VectorStore.Qdrant.APIKeyEnv)
		}
	}
	if cfg.VectorStore.Type == "pgvector" && cfg.VectorStore.Postgres != nil {
		pg := cfg.VectorStore.Postgres
		if pg.DSNEnv == "" {
			pg.DSNEnv = "BOOKREC_PG_DSN"
		}
		if pg.DSN == "" {
			pg.DSN = os.Getenv(pg.DSNEnv)
		}
		if pg.Table == "" {
			pg.Table = "book_entries"
		}
	}
	if cfg.Summarizer.MaxWords == 0 {
		cfg.Summarizer.MaxWords = 30
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
}

// Validate checks component types and numeric bounds.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Catalog.Path == "" {
		errs = append(errs, errors.New("catalog.path is required"))
	}
	switch c.Embedder.Type {
	case "", "tfidf":
	case "openai":
		if c.Embedder.OpenAI == nil {
			errs = append(errs, errors.New("embedder.openai section is required for type openai"))
		} else if n := c.Embedder.OpenAI.Retries(); n < 0 || n > MaxRetriesLimit {
			errs = append(errs, fmt.Errorf("embedder.openai.max_retries %d must be between 0 and %d", n, MaxRetriesLimit))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown embedder: %s", c.Embedder.Type))
	}
	switch c.VectorStore.Type {
	case "", "memory":
	case "qdrant":
		if c.VectorStore.Qdrant == nil {
			errs = append(errs, errors.New("vector_store.qdrant section is required for type qdrant"))
		}
	case "pgvector":
		if c.VectorStore.Postgres == nil {
			errs = append(errs, errors.New("vector_store.postgres section is required for type pgvector"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown vector store: %s", c.VectorStore.Type))
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format: %s", c.Log.Format))
	}
	switch c.Chunker.Type {
	case "", "sentence", "none":
	default:
		errs = append(errs, fmt.Errorf("unknown chunker: %s", c.Chunker.Type))
	}
	r := c.Recommend
	if r.DefaultLimit < 0 || r.MaxLimit < 0 || r.OverfetchFactor < 0 || r.MaxCandidates < 0 {
		errs = append(errs, errors.New("recommend limits must not be negative"))
	}
	if r.MaxLimit > 0 && r.DefaultLimit > r.MaxLimit {
		errs = append(errs, fmt.Errorf("recommend.default_limit %d exceeds max_limit %d", r.DefaultLimit, r.MaxLimit))
	}
	if r.MaxCandidates > 0 && r.MaxCandidates <= r.MaxLimit {
		errs = append(errs, fmt.Errorf("recommend.max_candidates %d must exceed max_limit %d", r.MaxCandidates, r.MaxLimit))
	}
	return errors.Join(errs...)
}

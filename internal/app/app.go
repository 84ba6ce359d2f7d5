// Package app assembles the recommender from configuration.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"bookrec/internal/catalog"
	"bookrec/internal/chunker"
	"bookrec/internal/config"
	"bookrec/internal/domain"
	"bookrec/internal/embedding"
	"bookrec/internal/indexer"
	"bookrec/internal/recommend"
	"bookrec/internal/service"
	"bookrec/internal/summarizer"
	"bookrec/internal/vectorstore"
	"bookrec/internal/vectorstore/memory"
	"bookrec/internal/vectorstore/pgvector"
	"bookrec/internal/vectorstore/qdrant"
)

// ConfigEnv names the environment variable that overrides the config path.
const ConfigEnv = "BOOKREC_CONFIG"

// App holds the wired components.
type App struct {
	Config   *config.AppConfig
	Catalog  *catalog.Store
	Embedder domain.Embedder
	Index    vectorstore.Storage
	Engine   *recommend.Engine
	Service  *service.Service

	closers []func()
}

// Close releases connections held by the index.
func (a *App) Close() {
	for _, c := range a.closers {
		c()
	}
}

// LoadConfig resolves the config path from flag, then BOOKREC_CONFIG, then
// the default locations.
func LoadConfig(flagPath string) (*config.AppConfig, string, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv(ConfigEnv)
	}
	if path == "" {
		return config.LoadDefault()
	}
	cfg, err := config.Load(path)
	return cfg, path, err
}

// New loads the catalog and wires every component. The index is built when
// the configured store needs it.
func New(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	store, err := catalog.Load(cfg.Catalog.Path, catalog.LoadOptions{
		DefaultCover:    cfg.Catalog.DefaultCover,
		ThumbnailSuffix: cfg.Catalog.ThumbnailSuffix,
	})
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	log.Info("catalog loaded", zap.String("path", cfg.Catalog.Path), zap.Int("books", store.Len()))
	return Wire(ctx, cfg, store, log)
}

// Wire builds the components around an already loaded catalog.
func Wire(ctx context.Context, cfg *config.AppConfig, store *catalog.Store, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	emb, err := embedding.New(cfg.Embedder, log)
	if err != nil {
		return nil, err
	}
	st, closeIndex, err := newStorage(ctx, cfg.VectorStore)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*App, error) {
		closeIndex()
		return nil, err
	}
	ch := chunker.New(cfg.Chunker.Type, cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences)

	if cfg.VectorStore.NeedsBuild() {
		if _, err := indexer.Build(ctx, store, ch, emb, st, log.Named("indexer")); err != nil {
			return fail(fmt.Errorf("build index: %w", err))
		}
	} else if err := indexer.Prepare(store, ch, emb); err != nil {
		return fail(err)
	}

	r := cfg.Recommend
	eng := recommend.New(emb, st, store, recommend.Config{
		DefaultLimit:    r.DefaultLimit,
		MaxLimit:        r.MaxLimit,
		OverfetchFactor: r.OverfetchFactor,
		MaxCandidates:   r.MaxCandidates,
		EmbedTimeout:    time.Duration(r.EmbedTimeoutSecs) * time.Second,
		SearchTimeout:   time.Duration(r.SearchTimeoutSecs) * time.Second,
	}, log)

	svc := service.New(eng, store,
		service.WithTeaser(summarizer.New(cfg.Summarizer.Type, cfg.Summarizer.MaxSentences, cfg.Summarizer.MaxWords)),
		service.WithHighlighter(summarizer.NewFrequencySummarizer()),
		service.WithLogger(log),
	)
	return &App{
		Config:   cfg,
		Catalog:  store,
		Embedder: emb,
		Index:    st,
		Engine:   eng,
		Service:  svc,
		closers:  []func(){closeIndex},
	}, nil
}

func newStorage(ctx context.Context, cfg config.VectorStoreConfig) (vectorstore.Storage, func(), error) {
	noop := func() {}
	switch cfg.Type {
	case "memory", "":
		return memory.NewStorage(), noop, nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, nil, fmt.Errorf("qdrant config missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Distance:   cfg.Qdrant.Distance,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}), noop, nil
	case "pgvector":
		if cfg.Postgres == nil || cfg.Postgres.DSN == "" {
			return nil, nil, fmt.Errorf("pgvector dsn missing")
		}
		st, closeDB, err := pgvector.Open(ctx, cfg.Postgres.DSN, cfg.Postgres.Table)
		if err != nil {
			return nil, nil, err
		}
		return st, closeDB, nil
	default:
		return nil, nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

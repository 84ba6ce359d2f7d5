package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bookrec/internal/api"
	"bookrec/internal/app"
	"bookrec/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "bookrec-api:", err)
		os.Exit(1)
	}
}

// run owns every deferred cleanup, so main only exits once they have run.
func run() error {
	_ = godotenv.Load()

	var cfgPath, addr string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; falls back to $BOOKREC_CONFIG, ./config.yaml, ~/.config/bookrec/config.yaml)")
	flag.StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	flag.Parse()

	cfg, used, err := app.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	zl, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()
	zl.Info("config loaded", zap.String("path", used))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, zl)
	if err != nil {
		zl.Error("start-up failed", zap.Error(err))
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: api.NewServer(a.Service, a.Index, api.Config{
			CORSOrigins:        cfg.Server.CORSOrigins,
			RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		}, zl),
		ReadHeaderTimeout: 10 * time.Second,
	}
	shutdown := time.Duration(cfg.Server.ShutdownSecs) * time.Second
	if err := serve(ctx, srv, shutdown, zl); err != nil {
		zl.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}

// serve blocks until ctx is done or the listener fails, then shuts srv
// down gracefully.
func serve(ctx context.Context, srv *http.Server, shutdown time.Duration, log *zap.Logger) error {
	if shutdown <= 0 {
		shutdown = 10 * time.Second
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdown)
	defer cancel()
	log.Info("shutting down")
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

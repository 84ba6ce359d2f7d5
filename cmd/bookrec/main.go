package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bookrec/internal/app"
	"bookrec/internal/logger"
	"bookrec/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "bookrec:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; falls back to $BOOKREC_CONFIG, ./config.yaml, ~/.config/bookrec/config.yaml)")
	flag.Parse()

	cfg, used, err := app.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// the terminal belongs to the UI; logs go to a file
	if cfg.Log.Path == "" {
		cfg.Log.Path = filepath.Join(os.TempDir(), "bookrec.log")
	}
	zl, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()
	zl.Info("config loaded", zap.String("path", used))

	a, err := app.New(context.Background(), cfg, zl)
	if err != nil {
		zl.Error("start-up failed", zap.Error(err))
		return err
	}
	defer a.Close()

	timeout := time.Duration(cfg.Recommend.EmbedTimeoutSecs+cfg.Recommend.SearchTimeoutSecs) * time.Second
	m := tui.New(a.Service, timeout)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

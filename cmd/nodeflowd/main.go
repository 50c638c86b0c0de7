// Command nodeflowd runs the workflow execution engine as an HTTP
// service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/pthurston/nodeflow/core/engine"
	"github.com/pthurston/nodeflow/internal/config"
	"github.com/pthurston/nodeflow/internal/httpapi"
	"github.com/pthurston/nodeflow/providers/ai/gemini"
	"github.com/pthurston/nodeflow/providers/fetch"
	"github.com/pthurston/nodeflow/providers/observability"
	"github.com/pthurston/nodeflow/providers/quota"
	"github.com/pthurston/nodeflow/providers/quota/sqlitequota"
	"github.com/pthurston/nodeflow/providers/recorder/sqliterecorder"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "nodeflowd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	// Local development keeps GEMINI_API_KEY in a .env file; absence is
	// fine, production sets real environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	obs := observability.NewSlog(nil)
	ctx := observability.ContextWithObserver(context.Background(), obs)

	for _, p := range []string{cfg.Store.QuotaDBPath, cfg.Store.RunsDBPath} {
		if dir := filepath.Dir(p); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("create data directory %s: %w", dir, err)
			}
		}
	}

	quotaStore, err := sqlitequota.Open(cfg.Store.QuotaDBPath)
	if err != nil {
		return fmt.Errorf("open quota store: %w", err)
	}
	defer func() { _ = quotaStore.Close() }()

	runStore, err := sqliterecorder.Open(cfg.Store.RunsDBPath)
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	defer func() { _ = runStore.Close() }()

	provider := gemini.New()
	if !provider.Configured() {
		obs.Warn(ctx, "GEMINI_API_KEY is not set, runs will fail until configured")
	}

	eng := engine.New(
		provider,
		quota.NewGate(quotaStore, cfg.Engine.FreeTierLimit),
		runStore,
		fetch.New(),
		obs,
		engine.Config{
			MaxConcurrency: cfg.Engine.MaxConcurrency,
			DefaultModel:   cfg.AI.Model,
		},
	)

	srv := httpapi.New(httpapi.Config{
		Addr:            cfg.Server.Addr,
		RunTimeout:      cfg.Engine.RunTimeout(),
		ShutdownTimeout: cfg.Server.ShutdownTimeout(),
	}, eng, provider, runStore, obs)

	return srv.ListenAndServe()
}

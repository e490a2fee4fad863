// Package application assembles the import pipeline from configuration.
// Both the HTTP server and the CLI build their components here.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/bulkimport/internal/auth"
	"github.com/JonMunkholm/bulkimport/internal/config"
	"github.com/JonMunkholm/bulkimport/internal/core"
	"github.com/JonMunkholm/bulkimport/internal/history"
	"github.com/JonMunkholm/bulkimport/internal/marketplace"
)

// App holds the wired components.
type App struct {
	Config    *config.Config
	Client    *marketplace.Client
	Importer  *core.Importer
	Submitter *core.Submitter
	Limiter   *core.UploadLimiter
	History   history.Store
	Accessor  *auth.Accessor
	Service   *core.Service

	pool *pgxpool.Pool
}

// ImageRules returns the image checks configured for imports.
func ImageRules(cfg *config.Config) core.ImageRules {
	return core.ImageRules{
		CDNHost:      cfg.Import.CDNHost,
		Placeholders: cfg.Import.PlaceholderPatterns,
	}
}

// SubmitConfig returns the batching settings configured for uploads.
func SubmitConfig(cfg *config.Config) core.SubmitConfig {
	return core.SubmitConfig{
		BatchThreshold:   cfg.Upload.BatchThreshold,
		BatchSize:        cfg.Upload.BatchSize,
		SingleTimeout:    cfg.Upload.SingleTimeout,
		BatchTimeout:     cfg.Upload.BatchTimeout,
		BatchesPerMinute: cfg.Upload.BatchesPerMinute,
	}
}

// NewImporter creates an importer using the configured image rules.
func NewImporter(cfg *config.Config) *core.Importer {
	return core.NewImporter(ImageRules(cfg))
}

// NewClient creates the marketplace client.
func NewClient(cfg *config.Config) *marketplace.Client {
	return marketplace.NewClient(marketplace.Options{
		BaseURL:         cfg.API.BaseURL,
		BulkPath:        cfg.API.BulkPath,
		CurrentUserPath: cfg.API.CurrentUserPath,
		Token:           cfg.API.Token,
		RequestTimeout:  cfg.API.RequestTimeout,
	})
}

// New wires every component. With a database URL, history is stored in
// Postgres and the schema is created if missing; otherwise it is kept in
// memory.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	client := NewClient(cfg)
	a := &App{
		Config:    cfg,
		Client:    client,
		Importer:  NewImporter(cfg),
		Submitter: core.NewSubmitter(client, SubmitConfig(cfg)),
		Limiter:   core.NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		Accessor:  auth.NewAccessor(client, cfg.Session.TTL),
	}

	if cfg.Database.URL != "" {
		pool, err := openPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		store := history.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		a.pool = pool
		a.History = store
	} else {
		slog.Info("no database configured, keeping upload history in memory")
		a.History = history.NewMemoryStore()
	}

	a.Service = core.NewService(core.ServiceOptions{
		Importer:    a.Importer,
		Submitter:   a.Submitter,
		Limiter:     a.Limiter,
		History:     a.History,
		MaxFileSize: cfg.Upload.MaxFileSize,
		SessionTTL:  cfg.Session.TTL,
	})
	return a, nil
}

// Close releases the database pool, if any.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/urfave/cli.v1"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/indexer/sqlstore"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/database"
	apperrors "github.com/Adithya-Monish-Kumar-K/movie-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/metrics"
)

// env holds what every command needs: config, tokenizer, snapshot store and
// metrics.
type env struct {
	cfg     *config.Config
	tok     *tokenizer.Tokenizer
	store   indexer.SnapshotStore
	metrics *metrics.Metrics
	closers []func() error
}

func setup(ctx context.Context, c *cli.Context, reg prometheus.Registerer) (*env, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	tok, err := tokenizer.FromConfig(cfg.Tokenizer, cfg.Dataset)
	if err != nil {
		return nil, fmt.Errorf("building tokenizer: %w", err)
	}
	e := &env{
		cfg:     cfg,
		tok:     tok,
		metrics: metrics.New(reg),
	}
	if err := e.openStore(ctx); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *env) openStore(ctx context.Context) error {
	var (
		client *database.Client
		err    error
	)
	switch e.cfg.Index.Backend {
	case config.BackendFile:
		e.store = snapshot.NewFileStore(e.cfg.Index.CacheDir)
		slog.Debug("snapshot store selected", "backend", config.BackendFile, "dir", e.cfg.Index.CacheDir)
		return nil
	case config.BackendPostgres:
		client, err = database.OpenPostgres(ctx, e.cfg.Postgres)
	case config.BackendSQLite:
		client, err = database.OpenSQLite(ctx, e.cfg.SQLite)
	default:
		return fmt.Errorf("unknown index backend %q", e.cfg.Index.Backend)
	}
	if err != nil {
		return apperrors.Storage("opening snapshot database", err)
	}
	e.closers = append(e.closers, client.Close)
	store, err := sqlstore.New(ctx, client)
	if err != nil {
		return err
	}
	e.store = store
	slog.Debug("snapshot store selected", "backend", e.cfg.Index.Backend)
	return nil
}

// loadEngine restores the persisted snapshot, indexing the dataset directly
// when none exists yet.
func (e *env) loadEngine(ctx context.Context) (*indexer.Engine, error) {
	engine := indexer.New(e.tok, e.store, e.metrics)
	err := engine.Load(ctx)
	if err == nil {
		return engine, nil
	}
	if !errors.Is(err, apperrors.ErrSnapshotNotFound) {
		return nil, err
	}
	slog.Info("no usable snapshot, indexing dataset", "reason", err, "dataset", e.cfg.Dataset.MoviesPath)
	if err := engine.BuildFromFile(ctx, e.cfg.Dataset.MoviesPath); err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}
	return engine, nil
}

func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}
}

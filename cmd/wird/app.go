package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ldi/wird/internal/config"
	"github.com/ldi/wird/internal/db"
	"github.com/ldi/wird/internal/ledger"
	"github.com/ldi/wird/internal/metrics"
	"github.com/ldi/wird/internal/snapshot"
	"github.com/ldi/wird/internal/store"
)

const closeTimeout = 10 * time.Second

// app is the ledger wired to the configured backend.
type app struct {
	store   store.Store
	ledger  *ledger.Ledger
	metrics *metrics.Metrics
	closeFn func() error
}

// openStore opens the backend named in cfg. The returned func releases it.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (store.Store, func() error, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		database, err := db.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Init(ctx); err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if cfg.Snapshot.Auto {
			database.SetOnChange(snapshot.AutoExport(database, cfg.Snapshot.Path, log))
		}
		return database, database.Close, nil

	case config.BackendFile:
		f, err := store.NewFile(cfg.Storage.FilePath)
		if err != nil {
			return nil, nil, err
		}
		return f, func() error { return nil }, nil

	case config.BackendRedis:
		r, err := store.DialRedis(ctx, cfg.Storage.RedisAddr, cfg.Storage.RedisPrefix)
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil

	case config.BackendMemory:
		return store.NewMemory(), func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

// importSnapshot replaces the stored state with the snapshot at path. The
// sqlite change hook is muted so auto-export does not rewrite the file being read.
func importSnapshot(ctx context.Context, st store.Store, path string) (snapshot.Meta, error) {
	if database, ok := st.(*db.DB); ok {
		database.DisableOnChange()
		defer database.EnableOnChange()
	}
	return snapshot.Import(ctx, st, path)
}

// openApp loads the ledger and applies the retention policy once.
func openApp(ctx context.Context, cfg config.Config, log *zap.Logger) (*app, error) {
	st, closeFn, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	l := ledger.New(st,
		ledger.WithLogger(log),
		ledger.WithMetrics(m),
		ledger.WithRetentionMonths(cfg.Retention.Months),
	)
	l.Load(ctx)
	l.Cleanup(ctx)

	return &app{store: st, ledger: l, metrics: m, closeFn: closeFn}, nil
}

// Close flushes pending writes and then releases the backend.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	return errors.Join(a.ledger.Close(ctx), a.closeFn())
}

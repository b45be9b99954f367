package formstore

import (
	"context"
	"fmt"

	"swedana-forms/internal/common/config"
	"swedana-forms/internal/common/database"
	"swedana-forms/internal/common/logger"
)

// OpenKV builds the device selected by storage.backend. The returned close
// func releases any connection the device holds.
func OpenKV(ctx context.Context, cfg *config.Config, log logger.Logger) (KV, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		log.Warn("memory storage backend selected; submissions are lost on restart", nil)
		return NewMemoryKV(), noop, nil

	case config.BackendFile:
		kv, err := NewFileKV(cfg.Storage.Directory)
		if err != nil {
			return nil, nil, err
		}
		return kv, noop, nil

	case config.BackendRedis:
		rc, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return nil, nil, err
		}
		if err := rc.Ping(ctx); err != nil {
			rc.Close()
			return nil, nil, err
		}
		return NewRedisKV(rc.Client, cfg.Database.Redis.KeyPrefix), rc.Close, nil

	case config.BackendPostgres:
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.Ping(ctx); err != nil {
			pg.Close()
			return nil, nil, fmt.Errorf("postgres ping failed: %w", err)
		}
		kv, err := NewSQLKV(pg.DB, cfg.Storage.Table, DialectPostgres)
		if err != nil {
			pg.Close()
			return nil, nil, err
		}
		if err := kv.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		return kv, pg.Close, nil

	case config.BackendSQLite:
		lite, err := database.NewSQLite(cfg.Database.SQLite)
		if err != nil {
			return nil, nil, err
		}
		kv, err := NewSQLKV(lite.DB, cfg.Storage.Table, DialectSQLite)
		if err != nil {
			lite.Close()
			return nil, nil, err
		}
		if err := kv.EnsureSchema(ctx); err != nil {
			lite.Close()
			return nil, nil, err
		}
		return kv, lite.Close, nil
	}

	return nil, nil, fmt.Errorf("storage backend %q is not supported", cfg.Storage.Backend)
}

// NewFromConfig opens the configured device and wraps it in a Store.
func NewFromConfig(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (*Store, func() error, error) {
	kv, closeFn, err := OpenKV(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	base := []Option{
		WithKey(cfg.Storage.Key),
		WithMaxBytes(cfg.Storage.MaxBytes),
		WithDateFormat(cfg.Export.DateLayout, cfg.Export.ExportLocation()),
	}
	return New(kv, log.Named("formstore"), append(base, opts...)...), closeFn, nil
}

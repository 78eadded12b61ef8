// Package cli holds the wiring shared by the tendril commands: building an
// engine from configuration and handling interrupt signals.
package cli

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/adapters/file"
	"github.com/aretw0/tendril/internal/config"
	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/adapters/redis"
	"github.com/aretw0/tendril/pkg/adapters/sqlite"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/persistence/middleware"
)

// NewEngine builds an engine over the store selected by cfg.
// The returned close function releases backend connections and is never nil.
func NewEngine(cfg config.Config, logger *slog.Logger, hooks domain.LifecycleHooks) (*tendril.Engine, func() error, error) {
	closeFn := func() error { return nil }
	opts := []tendril.Option{
		tendril.WithLogger(logger),
		tendril.WithLifecycleHooks(hooks),
		tendril.WithIndentCap(cfg.IndentCap),
	}

	switch cfg.Store {
	case config.StoreMemory:
		opts = append(opts, tendril.WithStore(memory.NewStore()))
	case config.StoreFile:
		opts = append(opts, tendril.WithStore(file.New(cfg.Dir)))
	case config.StoreSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		closeFn = store.Close
		opts = append(opts, tendril.WithStore(store))
	case config.StoreRedis:
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithTTL(cfg.Redis.TTL),
		)
		closeFn = store.Close
		opts = append(opts,
			tendril.WithStore(store),
			tendril.WithLocker(redis.NewLocker(store.Client(), cfg.Redis.Prefix)),
		)
		if cfg.Redis.Stream != "" {
			opts = append(opts, tendril.WithCommitSink(redis.NewStreamSink(store.Client(), cfg.Redis.Stream, 10000)))
		}
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	mws, err := middlewares(cfg)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	opts = append(opts, tendril.WithMiddleware(mws...))

	engine, err := tendril.New(opts...)
	if err != nil {
		_ = closeFn()
		return nil, nil, fmt.Errorf("error initializing engine: %w", err)
	}
	logger.Debug("engine ready", "store", cfg.Store, "middlewares", len(mws))
	return engine, closeFn, nil
}

// middlewares orders redaction before encryption so that masking sees plaintext.
func middlewares(cfg config.Config) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(cfg.Redact) > 0 {
		mw, err := middleware.NewRedactMiddleware(cfg.Redact)
		if err != nil {
			return nil, fmt.Errorf("invalid redact pattern: %w", err)
		}
		mws = append(mws, mw)
	}
	if cfg.EncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(cfg.EncryptionKey)
		if err != nil {
			return nil, errors.New("encryption_key must be base64")
		}
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return mws, nil
}

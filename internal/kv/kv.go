// Package kv define el almacenamiento clave-valor local donde vive todo el
// estado persistente del diario. Cada backend guarda valores opacos; el
// formato de los registros lo decide el repositorio.
package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"diary-companion/internal/config"
	"diary-companion/internal/db"
)

var (
	ErrNotFound = errors.New("kv: key not found")
	ErrEmptyKey = errors.New("kv: empty key")
)

// Store es el contrato minimo de un almacen clave-valor.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Open construye el backend indicado por la configuracion.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.StorageBackend {
	case config.StorageMemory:
		logger.Warn("using in-memory storage; data is lost on exit")
		return NewMemoryStore(), nil
	case config.StorageSQLite:
		return NewSQLiteStore(ctx, cfg.SQLitePath)
	case config.StoragePostgres:
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("kv: postgres pool: %w", err)
		}
		store, err := NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return store, nil
	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return NewRedisStore(client), nil
	default:
		return nil, fmt.Errorf("kv: unknown backend %q", cfg.StorageBackend)
	}
}

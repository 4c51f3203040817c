// Package storage provides the durable key/value store that backs sessions,
// the roster and per-identity conversation lists.
package storage

import (
	"context"
	"embed"
	"fmt"

	"go.uber.org/zap"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrations embed.FS

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Storage is a flat key/value store. Get returns (nil, nil) for a missing key.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Config struct {
	Driver     string
	SQLitePath string
	Postgres   DatabaseConfig
	Redis      RedisConfig
}

// Open builds the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Storage, error) {
	switch cfg.Driver {
	case DriverMemory, "":
		logger.Info("Using in-memory storage")
		return NewMemoryStorage(), nil
	case DriverSQLite:
		logger.Info("Using SQLite storage", zap.String("path", cfg.SQLitePath))
		return NewSQLiteStorage(ctx, cfg.SQLitePath)
	case DriverPostgres:
		logger.Info("Using PostgreSQL storage",
			zap.String("host", cfg.Postgres.Host),
			zap.String("dbname", cfg.Postgres.DBName))
		return NewPostgresStorage(ctx, cfg.Postgres)
	case DriverRedis:
		logger.Info("Using Redis storage", zap.String("addr", cfg.Redis.Addr))
		return NewRedisStorage(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

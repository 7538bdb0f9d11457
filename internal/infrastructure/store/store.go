package store

import (
	"context"
	"fmt"

	"github.com/unicatalog/backend/internal/domain"
)

// Backend types
const (
	TypeMemory = "memory"
	TypeRedis  = "redis"
	TypeSQLite = "sqlite"
)

// Store is a state store that holds resources
type Store interface {
	domain.StateStore
	Close() error
}

// Options selects and configures a backend
type Options struct {
	Type       string
	RedisURL   string
	SQLitePath string
	// KeyPrefix namespaces keys in shared backends
	KeyPrefix string
}

// Open creates the configured backend
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Type {
	case "", TypeMemory:
		return NewMemoryStore(), nil
	case TypeRedis:
		return NewRedisStore(ctx, opts.RedisURL, opts.KeyPrefix)
	case TypeSQLite:
		return NewSQLiteStore(opts.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store type %q", opts.Type)
	}
}

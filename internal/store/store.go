// Package store provides the durable key-value layer for nuggets.
//
// The bot persists a handful of JSON blobs (highlights, preferences,
// reminder state) under fixed keys. Three backends implement Store:
// - SQLite (default, single file, WAL)
// - Redis (shared deployments)
// - in-memory (tests and throwaway runs)
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultDBPath is the default database location.
const DefaultDBPath = "~/.nuggets/nuggets.db"

// DefaultRedisPrefix namespaces keys in a shared Redis.
const DefaultRedisPrefix = "nuggets:"

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// Store is a string-keyed blob store.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set writes one value.
	Set(ctx context.Context, key string, value []byte) error
	// SetMany writes several values, atomically where the backend allows.
	SetMany(ctx context.Context, values map[string][]byte) error
	// Close releases the backend.
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend     string // sqlite (default), redis, memory
	DBPath      string // sqlite file, ":memory:" for tests
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	RedisPrefix string
}

// Open creates the configured backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendSQLite:
		s, err := NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendRedis:
		s, err := NewRedisStore(ctx, RedisConfig{
			Addr:     cfg.RedisAddr,
			DB:       cfg.RedisDB,
			Password: cfg.RedisPass,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: sqlite, redis, memory)", cfg.Backend)
	}
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}

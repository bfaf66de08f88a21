// Package store is the tenant-scoped durable cache of whole collections.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrInvalidKey = errors.New("store: tenant and key are required")

// Store reads and writes one serialised collection per (tenant, key).
// Read reports ok=false when nothing was ever written.
type Store interface {
	Read(ctx context.Context, tenant, key string) ([]byte, bool, error)
	Write(ctx context.Context, tenant, key string, data []byte) error
	Close() error
}

func checkKey(tenant, key string) error {
	if strings.TrimSpace(tenant) == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	return nil
}

// BuildStoreFromDSN picks a backend from the DSN scheme: memory://, file:///path
// (or a bare path), postgres://, redis://. An empty DSN means memory.
func BuildStoreFromDSN(dsn string) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return NewMemoryStore(), nil
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse store dsn: %w", err)
	}
	switch scheme := strings.ToLower(parsed.Scheme); scheme {
	case "memory", "mem", "inmem":
		return NewMemoryStore(), nil
	case "", "file":
		path := parsed.Path
		if parsed.Host != "" {
			path = parsed.Host + path
		}
		if path == "" {
			return nil, fmt.Errorf("file store dsn %q has no path", dsn)
		}
		return NewFileStore(path)
	case "postgres", "postgresql":
		return NewPostgresStore(dsn)
	case "redis", "rediss":
		return NewRedisStore(dsn)
	default:
		return nil, fmt.Errorf("unsupported store scheme: %s", scheme)
	}
}

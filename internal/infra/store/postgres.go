package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

const (
	postgresTableName        = "leadflow_collections"
	postgresOperationTimeout = 5 * time.Second
	postgresInitRetry        = 5 * time.Second
)

type sqlOpenFunc func(driverName, dsn string) (*sql.DB, error)

// PostgresStore keeps one snapshot row per (tenant, collection). The table is
// created lazily on first use; a failed init is retried at most every
// postgresInitRetry.
type PostgresStore struct {
	dsn       string
	tableName string
	openDB    sqlOpenFunc
	now       func() time.Time

	mu         sync.Mutex
	initErr    error
	retryAfter time.Time
	db         *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("postgres store: empty dsn")
	}
	return &PostgresStore{
		dsn:       dsn,
		tableName: postgresTableName,
		openDB:    sql.Open,
		now:       time.Now,
	}, nil
}

func (s *PostgresStore) Read(ctx context.Context, tenant, key string) ([]byte, bool, error) {
	if err := checkKey(tenant, key); err != nil {
		return nil, false, err
	}
	db, err := s.ensureReady()
	if err != nil {
		return nil, false, err
	}
	ctx, cancel := context.WithTimeout(ctx, postgresOperationTimeout)
	defer cancel()

	var payload string
	err = db.QueryRowContext(ctx, s.selectQuery(), tenant, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(payload), true, nil
}

func (s *PostgresStore) Write(ctx context.Context, tenant, key string, data []byte) error {
	if err := checkKey(tenant, key); err != nil {
		return err
	}
	db, err := s.ensureReady()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, postgresOperationTimeout)
	defer cancel()

	_, err = db.ExecContext(ctx, s.upsertQuery(), tenant, key, string(data))
	return err
}

func (s *PostgresStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) selectQuery() string {
	return fmt.Sprintf("SELECT snapshot FROM %s WHERE tenant = $1 AND collection_key = $2", quoteIdentifier(s.tableName))
}

func (s *PostgresStore) upsertQuery() string {
	return fmt.Sprintf(`
		INSERT INTO %s (tenant, collection_key, snapshot, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (tenant, collection_key)
		DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = NOW()`, quoteIdentifier(s.tableName))
}

func (s *PostgresStore) ensureReady() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}
	if s.initErr != nil && s.now().Before(s.retryAfter) {
		return nil, s.initErr
	}
	db, err := s.open()
	if err != nil {
		s.initErr = err
		s.retryAfter = s.now().Add(postgresInitRetry)
		return nil, err
	}
	s.db, s.initErr = db, nil
	return db, nil
}

func (s *PostgresStore) open() (*sql.DB, error) {
	db, err := s.openDB("postgres", s.dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), postgresOperationTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			tenant TEXT NOT NULL,
			collection_key TEXT NOT NULL,
			snapshot TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (tenant, collection_key)
		)`, quoteIdentifier(s.tableName))
	if _, err := db.ExecContext(ctx, query); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/unicatalog/backend/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS state (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_state_expires ON state(expires_at);
`

// SQLiteStore keeps state in a single-file SQLite database. Expired rows are
// purged in the background until Close.
type SQLiteStore struct {
	db   *sql.DB
	now  func() time.Time
	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// NewSQLiteStore opens (or creates) the database at path and starts its purge loop
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	return openSQLiteStore(path, cleanupInterval, time.Now)
}

func openSQLiteStore(path string, purgeEvery time.Duration, now func() time.Time) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, now: now, done: make(chan struct{})}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	s.wg.Add(1)
	go s.purgeExpired(purgeEvery)

	return s, nil
}

func (s *SQLiteStore) purgeExpired(every time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if n, err := s.Purge(context.Background()); err != nil {
				slog.Warn("SQLite purge failed", "error", err)
			} else if n > 0 {
				slog.Debug("Purged expired state", "rows", n)
			}
		}
	}
}

func (s *SQLiteStore) initSchema() error {
	if _, err := s.db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("init sqlite schema: %w", err)
	}
	return nil
}

// Get retrieves a value, ErrStateNotFound when absent or expired
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM state WHERE key = ? AND (expires_at = 0 OR expires_at > ?)`,
		key, s.now().UnixNano(),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get %s: %w", key, err)
	}
	return value, nil
}

// Set upserts a value. A zero ttl never expires.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).UnixNano()
	}
	if value == nil {
		value = []byte{}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO state (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite set %s: %w", key, err)
	}
	return nil
}

// Delete removes a key
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite delete %s: %w", key, err)
	}
	return nil
}

// Exists checks if a key is present and not expired
func (s *SQLiteStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Get(ctx, key)
	if errors.Is(err, domain.ErrStateNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Purge deletes expired rows and returns how many were removed
func (s *SQLiteStore) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM state WHERE expires_at != 0 AND expires_at <= ?`, s.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sqlite purge: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the purge loop and closes the database
func (s *SQLiteStore) Close() error {
	s.once.Do(func() { close(s.done) })
	s.wg.Wait()
	return s.db.Close()
}

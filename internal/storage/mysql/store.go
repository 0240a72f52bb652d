package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
)

const defaultTable = "cache_entries"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// Store implements cache.Store on a MySQL table. Expired rows are filtered
// on read and removed by PurgeExpired.
type Store struct {
	db    *sql.DB
	table string
	now   func() time.Time
}

// Open connects using cfg and creates the cache table if needed.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store, err := NewWithDB(db, cfg.Table, nil)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewWithDB wraps an open database. An empty table uses "cache_entries" and
// a nil clock uses time.Now.
func NewWithDB(db *sql.DB, table string, now func() time.Time) (*Store, error) {
	if table == "" {
		table = defaultTable
	}
	if !tableName.MatchString(table) {
		return nil, apperrors.Newf(apperrors.CodeConfiguration, "invalid cache table name %q", table)
	}
	if now == nil {
		now = time.Now
	}
	return &Store{db: db, table: table, now: now}, nil
}

// EnsureSchema creates the cache table.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	cache_key VARCHAR(255) NOT NULL PRIMARY KEY,
	value BLOB NOT NULL,
	expires_at BIGINT NOT NULL,
	INDEX idx_%s_expires_at (expires_at)
)`, s.table, s.table)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageFailure, err, "create cache table")
	}
	return nil
}

// Get returns the live value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query := fmt.Sprintf(`SELECT value FROM %s WHERE cache_key = ? AND expires_at > ?`, s.table)
	var value []byte
	err := s.db.QueryRowContext(ctx, query, key, s.now().UnixMilli()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.Wrap(apperrors.CodeStorageFailure, err, "select cache entry")
	}
	return value, true, nil
}

// Set upserts value with its expiry. A zero expiresAt is stored as the
// maximum timestamp.
func (s *Store) Set(ctx context.Context, key string, value []byte, expiresAt time.Time) error {
	expires := int64(1<<63 - 1)
	if !expiresAt.IsZero() {
		expires = expiresAt.UnixMilli()
	}
	stmt := fmt.Sprintf(`INSERT INTO %s (cache_key, value, expires_at) VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE value = VALUES(value), expires_at = VALUES(expires_at)`, s.table)
	if _, err := s.db.ExecContext(ctx, stmt, key, value, expires); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageFailure, err, "upsert cache entry")
	}
	return nil
}

// PurgeExpired deletes rows whose expiry has passed and returns how many
// were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE expires_at <= ?`, s.table)
	res, err := s.db.ExecContext(ctx, stmt, s.now().UnixMilli())
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeStorageFailure, err, "purge cache entries")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeStorageFailure, err, "purge cache entries")
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

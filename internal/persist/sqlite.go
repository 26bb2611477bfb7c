package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const (
	durableTable = "durable_kv"
	sessionTable = "session_kv"
)

// DB is a SQLite file holding both scopes in separate tables.
type DB struct {
	db     *sql.DB
	dbPath string
}

// Options configures how the database file is opened.
type Options struct {
	// CreateIfNotExists creates the parent directory and the database file.
	CreateIfNotExists bool

	// EnableWAL switches the journal to write-ahead logging so that a
	// second process (eg. the stop command) can write while a run reads.
	EnableWAL bool

	// BusyTimeoutMS is how long a writer waits for a lock held by another
	// process before failing.
	BusyTimeoutMS int
}

func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
		BusyTimeoutMS:     10_000,
	}
}

// Open opens or creates the database at dbPath.
func Open(dbPath string, opts Options) (*DB, error) {
	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(dbPath, opts))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	d := &DB{db: db, dbPath: dbPath}
	if err := d.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return d, nil
}

// dsn carries the pragmas so that every connection the pool opens gets
// them, not only the first one.
func dsn(dbPath string, opts Options) string {
	pragmas := []string{fmt.Sprintf("_pragma=busy_timeout(%d)", opts.BusyTimeoutMS)}
	if opts.EnableWAL {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)", "_pragma=synchronous(NORMAL)")
	}
	return dbPath + "?" + strings.Join(pragmas, "&")
}

func (d *DB) createTables() error {
	var b strings.Builder
	for _, table := range []string{durableTable, sessionTable} {
		fmt.Fprintf(&b, `
	CREATE TABLE IF NOT EXISTS %s (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`, table)
	}
	_, err := d.db.ExecContext(context.Background(), b.String())
	return err
}

func (d *DB) Path() string { return d.dbPath }

func (d *DB) Close() error {
	return d.db.Close()
}

// Durable returns the scope that survives across sessions.
func (d *DB) Durable() *TableScope {
	return &TableScope{db: d.db, table: durableTable}
}

// Session returns the scope that is cleared when a session ends.
func (d *DB) Session() *TableScope {
	return &TableScope{db: d.db, table: sessionTable}
}

// TableScope is a Scope backed by one table.
type TableScope struct {
	db    *sql.DB
	table string
}

func (s *TableScope) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT value FROM %s WHERE key = ?", s.table), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return value, true, nil
}

func (s *TableScope) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	query := fmt.Sprintf(`
	INSERT INTO %s (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`, s.table)
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

func (s *TableScope) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE key = ?", s.table), key); err != nil {
		return fmt.Errorf("failed to remove key %s: %w", key, err)
	}
	return nil
}

// Keys returns all keys in ascending order.
func (s *TableScope) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT key FROM %s ORDER BY key", s.table))
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Clear removes every key of the scope.
func (s *TableScope) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", s.table)); err != nil {
		return fmt.Errorf("failed to clear %s: %w", s.table, err)
	}
	return nil
}

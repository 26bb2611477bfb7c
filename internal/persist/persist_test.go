package persist

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// setupTestDB opens a database in a temporary directory.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "store.db"), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type keyLister interface {
	Scope
	Keys(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}

func testScope(t *testing.T, s keyLister) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
	}

	if err := s.Set(ctx, "a", []byte("one")); err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if err := s.Set(ctx, "a", []byte("two")); err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	v, ok, err := s.Get(ctx, "a")
	if err != nil || !ok {
		t.Fatalf("expected key a, got ok=%v err=%v", ok, err)
	}
	if string(v) != "two" {
		t.Fatalf("expected 'two' but got '%s'", v)
	}

	if err := s.Set(ctx, "b", nil); err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("expected keys [a b] but got %v", keys)
	}

	if err := s.Remove(ctx, "a"); err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if err := s.Remove(ctx, "a"); err != nil {
		t.Fatalf("removing an absent key should not fail: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "a"); ok {
		t.Fatalf("expected key a to be removed")
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if keys, _ := s.Keys(ctx); len(keys) != 0 {
		t.Fatalf("expected no keys after clear but got %v", keys)
	}
}

func TestMemoryScope(t *testing.T) {
	t.Parallel()
	testScope(t, NewMemory())
}

func TestMemoryScopeCopiesValues(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()
	in := []byte("abc")
	_ = m.Set(ctx, "k", in)
	in[0] = 'x'
	out, _, _ := m.Get(ctx, "k")
	if string(out) != "abc" {
		t.Fatalf("stored value changed through caller slice: %s", out)
	}
}

func TestTableScopes(t *testing.T) {
	t.Parallel()

	t.Run("durable", func(t *testing.T) {
		t.Parallel()
		testScope(t, setupTestDB(t).Durable())
	})

	t.Run("session", func(t *testing.T) {
		t.Parallel()
		testScope(t, setupTestDB(t).Session())
	})

	t.Run("scopes are isolated", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		db := setupTestDB(t)
		if err := db.Durable().Set(ctx, "k", []byte("durable")); err != nil {
			t.Fatalf("got unexpected error: %v", err)
		}
		if _, ok, _ := db.Session().Get(ctx, "k"); ok {
			t.Fatalf("session scope must not see durable keys")
		}
		if err := db.Session().Clear(ctx); err != nil {
			t.Fatalf("got unexpected error: %v", err)
		}
		if _, ok, _ := db.Durable().Get(ctx, "k"); !ok {
			t.Fatalf("clearing the session must keep durable keys")
		}
	})
}

func TestPragmasOnEveryConnection(t *testing.T) {
	t.Parallel()

	d := setupTestDB(t)
	// Without idle connections every query runs on a fresh connection.
	d.db.SetMaxIdleConns(0)

	ctx := context.Background()
	for i := range 3 {
		var timeout int
		if err := d.db.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout); err != nil {
			t.Fatalf("got unexpected error: %v", err)
		}
		if timeout != 10_000 {
			t.Fatalf("connection %d: expected busy_timeout 10000 but got %d", i, timeout)
		}
		var mode string
		if err := d.db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
			t.Fatalf("got unexpected error: %v", err)
		}
		if mode != "wal" {
			t.Fatalf("connection %d: expected journal_mode wal but got %s", i, mode)
		}
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		opts     Options
		expected string
	}{
		{DefaultOptions(), "/tmp/x.db?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"},
		{Options{BusyTimeoutMS: 500}, "/tmp/x.db?_pragma=busy_timeout(500)"},
	}
	for _, tt := range tests {
		if got := dsn("/tmp/x.db", tt.opts); got != tt.expected {
			t.Errorf("expected %s but got %s", tt.expected, got)
		}
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates nested directories", func(t *testing.T) {
		t.Parallel()
		p := filepath.Join(t.TempDir(), "a", "b", "store.db")
		db, err := Open(p, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("database file was not created: %v", err)
		}
	})

	t.Run("fails without CreateIfNotExists", func(t *testing.T) {
		t.Parallel()
		opts := DefaultOptions()
		opts.CreateIfNotExists = false
		if _, err := Open(filepath.Join(t.TempDir(), "missing.db"), opts); err == nil {
			t.Fatalf("expected an error for a missing database")
		}
	})

	t.Run("data survives reopen", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		p := filepath.Join(t.TempDir(), "store.db")
		db, err := Open(p, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		if err := db.Durable().Set(ctx, "k", []byte("v")); err != nil {
			t.Fatalf("got unexpected error: %v", err)
		}
		_ = db.Close()

		db, err = Open(p, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db.Close()
		v, ok, err := db.Durable().Get(ctx, "k")
		if err != nil || !ok || string(v) != "v" {
			t.Fatalf("expected persisted value, got %q ok=%v err=%v", v, ok, err)
		}
	})
}

package db

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/kumagoya/kumagoya/internal/config"
	"github.com/rs/zerolog"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	SetLogger(zerolog.New(os.Stdout).Level(zerolog.ErrorLevel))

	db := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err := db.Init(context.Background()); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewSQLite(t *testing.T) {
	db := NewSQLite("whatever.db")

	if db == nil {
		t.Fatal("Expected non-nil SQLite instance")
	}
	if db.conn != nil {
		t.Error("Expected connection to be nil initially")
	}
	if db.Dialect() != DialectSQLite {
		t.Errorf("Expected dialect %q, got %q", DialectSQLite, db.Dialect())
	}
	if err := db.Close(); err != nil {
		t.Errorf("Closing an unopened database should not fail: %v", err)
	}
}

func TestSQLiteMigrate(t *testing.T) {
	ctx := context.Background()
	db := newTestSQLite(t)

	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	t.Run("Tables are created", func(t *testing.T) {
		for _, table := range []string{"users", "drafts", "posts", "sessions"} {
			var name string
			err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
			if err != nil {
				t.Errorf("Expected table %s to exist: %v", table, err)
			}
		}
	})

	t.Run("Migrating twice is a no-op", func(t *testing.T) {
		if err := Migrate(ctx, db); err != nil {
			t.Errorf("Second migration failed: %v", err)
		}
	})

	t.Run("Version is reported", func(t *testing.T) {
		version, dirty, err := MigrationVersion(ctx, db)
		if err != nil {
			t.Fatalf("Failed to read version: %v", err)
		}
		if version != 2 || dirty {
			t.Errorf("Expected clean version 2, got %d (dirty=%v)", version, dirty)
		}
	})

	t.Run("Rollback one step", func(t *testing.T) {
		if err := MigrateDown(ctx, db, 1); err != nil {
			t.Fatalf("Rollback failed: %v", err)
		}
		var n int
		err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='sessions'").Scan(&n)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if n != 0 {
			t.Error("Expected sessions table to be dropped")
		}
	})
}

func TestSQLiteExecAndQuery(t *testing.T) {
	ctx := context.Background()
	db := newTestSQLite(t)

	if _, err := db.ExecContext(ctx, `CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)`); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO kv (k, v) VALUES (?, ?), (?, ?)`, "a", "1", "b", "2"); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	rows, err := db.QueryContext(ctx, `SELECT k FROM kv ORDER BY k`)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		keys = append(keys, k)
	}
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("Expected [a b], got %v", keys)
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		driver  string
		dialect string
		wantErr bool
	}{
		{"sqlite3", DialectSQLite, false},
		{"sqlite", DialectSQLite, false},
		{"postgres", DialectPostgres, false},
		{"postgresql", DialectPostgres, false},
		{"mysql", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d, err := Open(tt.driver, "x", Pool{})
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if d.Dialect() != tt.dialect {
				t.Errorf("Expected dialect %q, got %q", tt.dialect, d.Dialect())
			}
		})
	}
}

func TestMigrationsEmbeddedPerDialect(t *testing.T) {
	for _, dialect := range []string{DialectSQLite, DialectPostgres} {
		files, err := fs.Glob(migrations, "migrations/"+dialect+"/*.up.sql")
		if err != nil {
			t.Fatalf("Glob failed: %v", err)
		}
		if len(files) == 0 {
			t.Errorf("Expected up migrations for dialect %q", dialect)
		}
	}
}

func TestOpenDefaultDriverAndMigrate(t *testing.T) {
	SetLogger(zerolog.Nop())
	ctx := context.Background()
	cfg := config.Default()

	d, err := Open(cfg.Database.Driver, filepath.Join(t.TempDir(), "default.db"), Pool{})
	if err != nil {
		t.Fatalf("Failed to open default driver %q: %v", cfg.Database.Driver, err)
	}
	if err := d.Init(ctx); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	if err := Migrate(ctx, d); err != nil {
		t.Fatalf("Failed to migrate default driver %q: %v", cfg.Database.Driver, err)
	}
	version, dirty, err := MigrationVersion(ctx, d)
	if err != nil {
		t.Fatalf("Failed to read version: %v", err)
	}
	if version == 0 || dirty {
		t.Errorf("Expected a clean applied version, got %d (dirty=%v)", version, dirty)
	}
}

func TestRebind(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SELECT 1", "SELECT 1"},
		{"SELECT * FROM posts WHERE id = ?", "SELECT * FROM posts WHERE id = $1"},
		{"INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"SELECT '?' FROM t WHERE a = ?", "SELECT '?' FROM t WHERE a = $1"},
	}

	for _, tt := range tests {
		if got := Rebind(tt.in); got != tt.want {
			t.Errorf("Rebind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

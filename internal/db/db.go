// Package db provides the SQL persistence client shared by the repositories.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"
)

// DB is the persistence client. Queries use '?' placeholders regardless of dialect.
type DB interface {
	Init(ctx context.Context) error

	Get() *sql.DB
	Close() error
	Dialect() string

	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var dbLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	dbLogger = l
}

// Open creates the client for the configured driver. Call Init before use.
func Open(driver, dsn string, pool Pool) (DB, error) {
	switch driver {
	case DialectSQLite, "sqlite":
		return NewSQLite(dsn), nil
	case DialectPostgres, "postgresql":
		return NewPostgres(dsn, pool), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Rebind rewrites '?' placeholders into PostgreSQL's '$n' form. Quoted literals are left alone.
func Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

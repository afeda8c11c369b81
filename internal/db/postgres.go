package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Pool holds connection pool limits for PostgreSQL.
type Pool struct {
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
}

type Postgres struct {
	dsn  string
	pool Pool
	conn *sql.DB
}

func NewPostgres(dsn string, pool Pool) *Postgres {
	return &Postgres{dsn: dsn, pool: pool}
}

func (p *Postgres) Init(ctx context.Context) error {
	conn, err := sql.Open(DialectPostgres, p.dsn)
	if err != nil {
		return fmt.Errorf("error opening postgres database: %w", err)
	}

	if p.pool.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(p.pool.MaxOpenConns)
	}
	if p.pool.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(p.pool.MaxIdleConns)
	}
	if p.pool.MaxIdleTime > 0 {
		conn.SetConnMaxIdleTime(p.pool.MaxIdleTime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return fmt.Errorf("error connecting to postgres database: %w", err)
	}

	p.conn = conn
	dbLogger.Info().Msg("Database initialized")
	return nil
}

func (p *Postgres) Get() *sql.DB {
	return p.conn
}

func (p *Postgres) Dialect() string {
	return DialectPostgres
}

func (p *Postgres) Close() error {
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func (p *Postgres) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	query = Rebind(query)
	dbLogger.Debug().Str("query", query).Msg("Query")
	return p.conn.QueryContext(ctx, query, args...)
}

func (p *Postgres) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	query = Rebind(query)
	dbLogger.Debug().Str("query", query).Msg("QueryRow")
	return p.conn.QueryRowContext(ctx, query, args...)
}

func (p *Postgres) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	query = Rebind(query)
	dbLogger.Debug().Str("query", query).Msg("Exec")
	return p.conn.ExecContext(ctx, query, args...)
}

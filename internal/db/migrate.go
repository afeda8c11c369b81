package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite3/*.sql migrations/postgres/*.sql
var migrations embed.FS

// migrationOpener is implemented by clients that can open a dedicated connection for
// golang-migrate, which closes the database it was handed.
type migrationOpener interface {
	openMigrationConn() (*sql.DB, error)
}

func (s *SQLite) openMigrationConn() (*sql.DB, error) {
	return sql.Open(DialectSQLite, s.dsn())
}

func (p *Postgres) openMigrationConn() (*sql.DB, error) {
	return sql.Open(DialectPostgres, p.dsn)
}

func newMigrate(d DB) (*migrate.Migrate, error) {
	opener, ok := d.(migrationOpener)
	if !ok {
		return nil, fmt.Errorf("database %T does not support migrations", d)
	}

	conn, err := opener.openMigrationConn()
	if err != nil {
		return nil, fmt.Errorf("error opening migration connection: %w", err)
	}

	var driver database.Driver
	switch d.Dialect() {
	case DialectSQLite:
		driver, err = migratesqlite.WithInstance(conn, &migratesqlite.Config{})
	case DialectPostgres:
		driver, err = migratepg.WithInstance(conn, &migratepg.Config{})
	default:
		err = fmt.Errorf("unsupported dialect %q", d.Dialect())
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("error creating migration driver: %w", err)
	}

	src, err := iofs.New(migrations, "migrations/"+d.Dialect())
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("error reading migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, d.Dialect(), driver)
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("error creating migrator: %w", err)
	}
	return m, nil
}

// Migrate applies every pending up migration.
func Migrate(ctx context.Context, d DB) error {
	m, err := newMigrate(d)
	if err != nil {
		return err
	}
	defer closeMigrate(m)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error applying migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	dbLogger.Info().Uint("version", version).Bool("dirty", dirty).Msg("Database migrated")
	return nil
}

// MigrateDown rolls back steps migrations.
func MigrateDown(ctx context.Context, d DB, steps int) error {
	m, err := newMigrate(d)
	if err != nil {
		return err
	}
	defer closeMigrate(m)

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error rolling back migrations: %w", err)
	}
	return nil
}

// MigrationVersion reports the applied version, 0 when nothing was applied.
func MigrationVersion(ctx context.Context, d DB) (uint, bool, error) {
	m, err := newMigrate(d)
	if err != nil {
		return 0, false, err
	}
	defer closeMigrate(m)

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func closeMigrate(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if srcErr != nil || dbErr != nil {
		dbLogger.Warn().AnErr("source", srcErr).AnErr("database", dbErr).Msg("Error closing migrator")
	}
}

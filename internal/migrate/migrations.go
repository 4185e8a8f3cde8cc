package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"

	"spyagency/internal/db"
)

//go:embed sql/sqlite/*.sql sql/postgres/*.sql
var migrationsFS embed.FS

func provider(conn *sql.DB, dialect db.Dialect) (*goose.Provider, error) {
	var (
		gd  goose.Dialect
		dir string
	)
	switch dialect {
	case db.SQLite:
		gd, dir = goose.DialectSQLite3, "sql/sqlite"
	case db.Postgres:
		gd, dir = goose.DialectPostgres, "sql/postgres"
	default:
		return nil, fmt.Errorf("no migrations for dialect %q", dialect)
	}
	sub, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		return nil, err
	}
	return goose.NewProvider(gd, conn, sub)
}

// Migrate applies embedded migrations in order and returns the versions applied.
func Migrate(ctx context.Context, conn *sql.DB, dialect db.Dialect) ([]int64, error) {
	p, err := provider(conn, dialect)
	if err != nil {
		return nil, err
	}
	results, err := p.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate up: %w", err)
	}
	applied := make([]int64, 0, len(results))
	for _, r := range results {
		applied = append(applied, r.Source.Version)
	}
	return applied, nil
}

// Version returns the highest applied migration version.
func Version(ctx context.Context, conn *sql.DB, dialect db.Dialect) (int64, error) {
	p, err := provider(conn, dialect)
	if err != nil {
		return 0, err
	}
	return p.GetDBVersion(ctx)
}

// Rollback reverts the last steps migrations.
func Rollback(ctx context.Context, conn *sql.DB, dialect db.Dialect, steps int) error {
	p, err := provider(conn, dialect)
	if err != nil {
		return err
	}
	for range steps {
		if _, err := p.Down(ctx); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
	}
	return nil
}

package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "modernc.org/sqlite"             // registers "sqlite"
)

// Dialect selects SQL flavour differences (placeholders, row locks, migrations).
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

type Config struct {
	Driver       string
	DSN          string
	MaxOpenConns int
}

// sqlitePragmas: FK enforcement, WAL readers, wait on locks, and
// BEGIN IMMEDIATE so check-then-write transactions serialize.
var sqlitePragmas = []string{
	"_pragma=foreign_keys(1)",
	"_pragma=busy_timeout(5000)",
	"_pragma=journal_mode(WAL)",
	"_txlock=immediate",
}

// Open opens the configured database and verifies it is reachable.
func Open(ctx context.Context, cfg Config) (*sql.DB, Dialect, error) {
	var (
		conn    *sql.DB
		dialect Dialect
		err     error
	)
	switch cfg.Driver {
	case "", string(SQLite):
		dialect = SQLite
		if err := ensureDir(cfg.DSN); err != nil {
			return nil, "", err
		}
		conn, err = sql.Open("sqlite", SQLiteDSN(cfg.DSN))
	case string(Postgres):
		dialect = Postgres
		conn, err = sql.Open("pgx", cfg.DSN)
	default:
		return nil, "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, "", err
	}
	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, "", fmt.Errorf("ping %s: %w", dialect, err)
	}
	return conn, dialect, nil
}

// SQLiteDSN turns a path (or file: URI) into a DSN carrying the required pragmas.
func SQLiteDSN(path string) string {
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(sqlitePragmas, "&")
}

// ensureDir creates the parent directory of a sqlite database file.
func ensureDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

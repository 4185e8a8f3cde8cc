package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t,
		"file:agency.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate",
		SQLiteDSN("agency.db"))
	assert.Equal(t,
		"file:agency.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate",
		SQLiteDSN("file:agency.db?mode=rwc"))
}

func TestOpenSQLiteCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "agency.db")
	conn, dialect, err := Open(context.Background(), Config{Driver: "sqlite", DSN: path, MaxOpenConns: 2})
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, SQLite, dialect)
	_, err = os.Stat(filepath.Dir(path))
	require.NoError(t, err)

	var fk int
	require.NoError(t, conn.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, _, err := Open(context.Background(), Config{Driver: "oracle", DSN: "x"})
	require.ErrorContains(t, err, "unsupported database driver")
}

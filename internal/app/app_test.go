package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spyagency/internal/breeds"
	"spyagency/internal/config"
	"spyagency/internal/db"
	"spyagency/internal/engine"
	"spyagency/internal/logger"
	"spyagency/internal/migrate"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Database.DSN = filepath.Join(t.TempDir(), "data", "agency.db")
	cfg.Breeds.Static = []string{"Siamese", "Bengal"}
	return cfg
}

func TestBootstrapStaticBreeds(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	a, err := Bootstrap(ctx, testConfig(t), Options{Logger: logger.Discard(), Registry: reg})
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, db.SQLite, a.Dialect)
	_, ok := a.Engine.Breeds.(breeds.Static)
	assert.True(t, ok, "static list should win over the remote lookup")

	version, err := migrate.Version(ctx, a.DB, a.Dialect)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	c, err := a.Engine.CreateCat(ctx, engine.CatCreateOptions{Name: "Tom", YearsExperience: 3, Breed: "siamese", Salary: 1000})
	require.NoError(t, err)
	assert.NotZero(t, c.ID)

	n, err := testutil.GatherAndCount(reg, "spyagency_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBootstrapRemoteBreeds(t *testing.T) {
	cfg := testConfig(t)
	cfg.Breeds.Static = nil
	cfg.Breeds.URL = "http://127.0.0.1:1/breeds"
	a, err := Bootstrap(context.Background(), cfg, Options{Logger: logger.Discard()})
	require.NoError(t, err)
	defer a.Close()

	_, ok := a.Engine.Breeds.(*breeds.CatAPI)
	assert.True(t, ok)
}

func TestBootstrapSkipMigrations(t *testing.T) {
	ctx := context.Background()
	a, err := Bootstrap(ctx, testConfig(t), Options{Logger: logger.Discard(), SkipMigrations: true})
	require.NoError(t, err)
	defer a.Close()

	_, err = a.DB.ExecContext(ctx, "SELECT 1 FROM cats")
	require.Error(t, err, "schema should not exist before migrate up")
}

func TestBootstrapRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "mysql"
	_, err := Bootstrap(context.Background(), cfg, Options{Logger: logger.Discard()})
	require.Error(t, err)
}

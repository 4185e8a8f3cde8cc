package main

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spyagency/internal/app"
	"spyagency/internal/config"
	"spyagency/internal/logger"
	"spyagency/internal/server"
	spyagencysdk "spyagency/sdk/go"
)

func TestParseTarget(t *testing.T) {
	got, err := parseTarget("Mr. Whiskers: UK :seen at 10:30")
	require.NoError(t, err)
	assert.Equal(t, spyagencysdk.NewTarget{Name: "Mr. Whiskers", Country: "UK", Notes: "seen at 10:30"}, got)

	got, err = parseTarget("Shadow:FR")
	require.NoError(t, err)
	assert.Empty(t, got.Notes)

	for _, bad := range []string{"", "Shadow", ":FR", "Shadow: "} {
		_, err := parseTarget(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseID(t *testing.T) {
	id, err := parseID(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"0", "-3", "abc"} {
		_, err := parseID(bad)
		assert.Error(t, err, bad)
	}
}

func startServer(t *testing.T) *spyagencysdk.Client {
	t.Helper()
	cfg := config.Default()
	cfg.Database.DSN = filepath.Join(t.TempDir(), "agency.db")
	cfg.Breeds.Static = []string{"Siamese"}
	a, err := app.Bootstrap(context.Background(), cfg, app.Options{Logger: logger.Discard(), Registry: prometheus.NewRegistry()})
	require.NoError(t, err)
	t.Cleanup(a.Close)
	h, err := server.New(server.Config{Engine: a.Engine, Logger: a.Logger, Metrics: a.Metrics})
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	v.Set("api-url", srv.URL)
	t.Cleanup(func() { v.Set("api-url", "") })
	return spyagencysdk.New(srv.URL)
}

func run(t *testing.T, cmd interface {
	SetArgs([]string)
	ExecuteContext(context.Context) error
}, args ...string) error {
	t.Helper()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func TestRemoteCommands(t *testing.T) {
	client := startServer(t)
	ctx := context.Background()

	require.NoError(t, run(t, catCmd(), "create", "--name", "Tom", "--breed", "siamese", "--years", "4", "--salary", "1200"))
	cats, err := client.ListCats(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	catID := cats[0].ID

	require.NoError(t, run(t, catCmd(), "salary", itoa(catID), "1500"))
	got, err := client.GetCat(ctx, catID)
	require.NoError(t, err)
	assert.Equal(t, 1500.0, got.Salary)

	require.NoError(t, run(t, missionCmd(), "create", "--target", "Bandit:UK", "--target", "Loki:FR:rooftops"))
	missions, err := client.ListMissions(ctx)
	require.NoError(t, err)
	require.Len(t, missions, 1)
	m := missions[0]
	require.Len(t, m.Targets, 2)

	require.NoError(t, run(t, missionCmd(), "assign", itoa(m.ID), itoa(catID)))
	err = run(t, catCmd(), "delete", itoa(catID))
	assert.True(t, spyagencysdk.IsStatus(err, 400), "active mission should block deletion: %v", err)

	require.NoError(t, run(t, targetCmd(), "update", itoa(m.Targets[0].ID), "--notes", "spotted", "--complete"))
	require.NoError(t, run(t, targetCmd(), "update", itoa(m.Targets[1].ID), "--complete"))
	done, err := client.GetMission(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, done.Complete)
	assert.Equal(t, "spotted", done.Targets[0].Notes)

	require.Error(t, run(t, targetCmd(), "update", itoa(m.Targets[0].ID)))
	require.NoError(t, run(t, catCmd(), "delete", itoa(catID)))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

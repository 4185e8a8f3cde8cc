package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Operation("assign_cat", "conflict")
	m.Operation("assign_cat", "conflict")
	m.ObserveHTTP("/cats/{id}", http.MethodGet, 404, 5*time.Millisecond)
	m.BreedLookup("cache", "hit")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("assign_cat", "conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/cats/{id}", "GET", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.breedLookups.WithLabelValues("cache", "hit")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "spyagency_operations_total"))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Operation("x", "ok")
	m.ObserveHTTP("/", "GET", 200, time.Millisecond)
	m.BreedLookup("remote", "ok")
	m.BreakerState(1)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

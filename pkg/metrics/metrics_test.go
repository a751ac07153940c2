package metrics

import (
	"context"
	"errors"
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

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveScan("log_data/*.json", 1, 2, 0, 10, time.Second)
	m.ObserveWrite("songs", 1, 1, 0, time.Second)
	m.RunStarted()(nil)
}

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveScan("log_data/*.json", 2, 10, 1, 512, time.Millisecond)
	m.ObserveWrite("songs", 5, 2, 3, time.Millisecond)
	m.RunStarted()(nil)
	m.RunStarted()(errors.New("boom"))

	assert.Equal(t, 10.0, testutil.ToFloat64(m.rowsScanned.WithLabelValues("log_data/*.json")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.corruptRecords.WithLabelValues("log_data/*.json")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.rowsWritten.WithLabelValues("songs")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.objectsDeleted.WithLabelValues("songs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("failed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.runsInFlight))
}

func TestPusher(t *testing.T) {
	assert.Nil(t, NewPusher(" ", "etl", nil))

	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	New(reg).RunStarted()(nil)

	p := NewPusher(srv.URL, "songplay_etl", map[string]string{"run_id": "abc", "": "skip"})
	require.NoError(t, p.Push(context.Background(), reg))
	assert.True(t, strings.HasPrefix(path, "/metrics/job/songplay_etl"))
	assert.Contains(t, path, "run_id/abc")
}

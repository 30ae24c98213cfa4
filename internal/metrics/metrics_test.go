package metrics

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordIngested(3)
		m.RecordIngestError()
		m.RecordSize(true)
		m.RecordReplication(false)
		m.RecordPin(true, 10)
		m.SetRetention(1, 2, 3)
		m.ObserveStage("ingest", time.Second)
		m.ObserveCycle(time.Second, time.Unix(0, 0))
	})
}

func TestRecorders(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordIngested(3)
	m.RecordIngested(0)
	m.RecordSize(true)
	m.RecordSize(false)
	m.RecordSize(false)
	m.RecordReplication(true)
	m.RecordPin(true, 100)
	m.RecordPin(false, 50)
	m.SetRetention(400, 1000, 7)
	m.ObserveCycle(2*time.Second, time.Unix(1700000000, 0))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.ItemsIngested))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SizeResolutions.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SizeResolutions.WithLabelValues(ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReplicationChecks.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Pins.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Pins.WithLabelValues(ResultFailure)))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.PinnedBytes))
	assert.Equal(t, 400.0, testutil.ToFloat64(m.DiskUtilization))
	assert.Equal(t, 1000.0, testutil.ToFloat64(m.DiskBudget))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.Candidates))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.LastCycleTimestamp))
	assert.Equal(t, 1, testutil.CollectAndCount(m.CycleDuration))
}

func TestServer_MetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.RecordPin(true, 42)

	s := NewServer("127.0.0.1:0", reg, zerolog.Nop())
	require.NoError(t, s.Start())
	defer s.Close()

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `pinbot_retention_pins_total{result="success"} 1`)
	assert.Contains(t, string(body), "pinbot_retention_pinned_bytes_total 42")
}

func TestServer_CloseBeforeStart(t *testing.T) {
	s := NewServer("127.0.0.1:0", prometheus.NewRegistry(), zerolog.Nop())
	assert.NoError(t, s.Close())
	assert.Equal(t, "127.0.0.1:0", s.Addr())
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.RecordIngested(5)

	path := filepath.Join(t.TempDir(), "pinbot.prom")
	require.NoError(t, WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pinbot_ingest_items_total 5")
}

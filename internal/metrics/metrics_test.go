package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveFetch(true, 10, time.Second)
	m.ObserveRetry()
	m.ObserveProbe("ts")
}

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveFetch(true, 100, 10*time.Millisecond)
	m.ObserveFetch(true, 50, 10*time.Millisecond)
	m.ObserveFetch(false, 0, time.Second)
	m.ObserveRetry()
	m.ObserveProbe("ts")
	m.ObserveProbe("ts")
	m.ObserveProbe("adts")

	require.Equal(t, 2.0, testutil.ToFloat64(m.Fetches.WithLabelValues("ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Fetches.WithLabelValues("error")))
	require.Equal(t, 150.0, testutil.ToFloat64(m.FetchBytes))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Retries))
	require.Equal(t, 2.0, testutil.ToFloat64(m.Probes.WithLabelValues("ts")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Probes.WithLabelValues("adts")))
}

func TestWriteFile(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveProbe("unknown")

	path := filepath.Join(t.TempDir(), "hlshealth.prom")
	require.NoError(t, WriteFile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), `hlshealth_segment_probes_total{container="unknown"} 1`))
}

package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveSuccess(t *testing.T) {
	m := NewExportMetrics()
	at := time.Unix(1700000000, 0)

	m.ObserveSuccess(42, 1500*time.Millisecond, at)

	assert.Equal(t, 42.0, testutil.ToFloat64(m.records))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.duration))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.lastSuccess))
	assert.Equal(t, 0, testutil.CollectAndCount(m.failed))
}

func TestObserveFailure(t *testing.T) {
	m := NewExportMetrics()

	m.ObserveFailure(KindStore, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.failed.WithLabelValues(KindStore)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.lastSuccess))
}

func TestWriteTextfile(t *testing.T) {
	m := NewExportMetrics()
	m.SetRun("run-1")
	m.ObserveSuccess(3, time.Second, time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "calibre_export.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "calibre_export_records 3")
	assert.Contains(t, string(data), `calibre_export_run_info{run_id="run-1"} 1`)
}

func TestRestoreLastSuccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibre_export.prom")

	previous := NewExportMetrics()
	previous.ObserveSuccess(3, time.Second, time.Unix(1700000000, 0))
	require.NoError(t, previous.WriteTextfile(path))

	m := NewExportMetrics()
	require.NoError(t, m.RestoreLastSuccess(path))
	m.ObserveFailure(KindQuery, time.Second)

	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.lastSuccess))
}

func TestRestoreLastSuccessMissingFile(t *testing.T) {
	m := NewExportMetrics()
	require.NoError(t, m.RestoreLastSuccess(filepath.Join(t.TempDir(), "absent.prom")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.lastSuccess))
}

func TestRestoreLastSuccessMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibre_export.prom")
	require.NoError(t, os.WriteFile(path, []byte("calibre_export_last_success_timestamp_seconds not-a-number\n"), 0o644))

	m := NewExportMetrics()
	assert.Error(t, m.RestoreLastSuccess(path))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.lastSuccess))
}

package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	c := NewCollector()
	c.ObserveBatch(1000)
	c.ObserveBatch(250)
	c.ObserveStage("read", 20*time.Millisecond)
	c.SetOutputBytes(4096)
	c.SetPeakRSS(1 << 20)
	c.RunFinished("succeeded", "")

	assert.Equal(t, float64(1250), testutil.ToFloat64(c.rowsTotal))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.batchesTotal))
	assert.Equal(t, float64(4096), testutil.ToFloat64(c.outputBytes))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.runs.WithLabelValues("succeeded", "")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.stageDuration))
}

func TestCollectorsAreIsolated(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	a.ObserveBatch(10)
	assert.Equal(t, float64(0), testutil.ToFloat64(b.rowsTotal))
}

func TestWriteTextfile(t *testing.T) {
	c := NewCollector()
	c.ObserveBatch(3)
	c.RunFinished("failed", "empty_source")

	path := filepath.Join(t.TempDir(), "run.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "xlsx2parquet_rows_total 3")
	assert.True(t, strings.Contains(text, `xlsx2parquet_runs_total{error_type="empty_source",state="failed"} 1`), text)
}

func TestTimer(t *testing.T) {
	timer := NewTimer("write")
	assert.Equal(t, "write", timer.Name())
	first := timer.Stop()
	assert.GreaterOrEqual(t, timer.Stop(), first)
}

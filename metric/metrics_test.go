package metric

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New("run-1")

	m.ObserveCompletion("table_labels", 10*time.Millisecond, nil)
	m.ObserveCompletion("table_labels", 10*time.Millisecond, nil)
	m.ObserveCompletion("column_labels", 10*time.Millisecond, errors.New("boom"))
	m.ContractViolation("column_labels")
	m.TableExcluded("no-flow-match")
	m.TableTagged()
	m.MetadataWritten("column", 6)
	m.MetadataWritten("table", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.completions.WithLabelValues("table_labels")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.completions.WithLabelValues("column_labels")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.completionErrors.WithLabelValues("column_labels")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.contractViolations.WithLabelValues("column_labels")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tablesExcluded.WithLabelValues("no-flow-match")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tablesTagged))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.metadataWritten.WithLabelValues("column")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.metadataWritten.WithLabelValues("table")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveCompletion("k", time.Second, nil)
		m.ContractViolation("k")
		m.TableExcluded("r")
		m.TableTagged()
		m.MetadataWritten("table", 1)
	})
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New("run-42")
	m.TableTagged()

	path := filepath.Join(t.TempDir(), "semtag.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `semtag_tables_tagged_total{run_id="run-42"} 1`)
}

func TestMetrics_WriteTextfile_EmptyPath(t *testing.T) {
	m := New("run-1")
	assert.NoError(t, m.WriteTextfile(""))
}

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordHelpers(t *testing.T) {
	m := NewMetrics()

	m.ObserveCycle(40 * time.Millisecond)
	m.ObserveCycle(10 * time.Millisecond)
	m.RecordPackage("full", OutcomeWritten)
	m.RecordPackage("full", OutcomeWritten)
	m.RecordPackage("api-only", OutcomeInvalid)
	m.RecordValidation(2, 3)
	m.RecordBatch(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Cycles))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PackagesProcessed.WithLabelValues("full", OutcomeWritten)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PackagesProcessed.WithLabelValues("api-only", OutcomeInvalid)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ValidationIssues.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ValidationIssues.WithLabelValues("warning")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DebouncedBatches))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.DebouncedEvents))
}

func TestRegisterTwiceFails(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))
	assert.Error(t, m.Register(reg))
}

func TestHandlerServesMetrics(t *testing.T) {
	m := NewMetrics()
	reg, err := NewRegistry(m)
	require.NoError(t, err)

	m.PagesWritten.Add(3)

	server := httptest.NewServer(Handler(reg))
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "docsync_pages_written_total 3")
	assert.Contains(t, string(body), "go_goroutines")
}

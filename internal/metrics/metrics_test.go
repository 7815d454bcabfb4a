package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(SignalsTotal.WithLabelValues("rsi_reversal"))
	SignalsTotal.WithLabelValues("rsi_reversal").Add(3)
	assert.Equal(t, before+3, testutil.ToFloat64(SignalsTotal.WithLabelValues("rsi_reversal")))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	FetchFailuresTotal.WithLabelValues("AAPL").Inc()
	ScanDuration.Observe(1.5)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `quantscout_fetch_failures_total{symbol="AAPL"}`)
	assert.Contains(t, string(body), "quantscout_scan_duration_seconds_count")
}

package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartJSON = `{"chart":{"result":[{
  "timestamp":[1704205800,1704292200,1704378600],
  "indicators":{"quote":[{
    "open":[187.15,null,182.15],
    "high":[188.44,null,183.09],
    "low":[183.89,null,180.88],
    "close":[185.64,null,181.91],
    "volume":[82488700.4,null,71983600]
  }]}
}],"error":null}}`

func TestYahooFetcher_FetchDailyBars(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		_, _ = w.Write([]byte(chartJSON))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL

	points, err := f.FetchDailyBars(context.Background(), "SPX", "6mo")
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/^GSPC", gotPath)
	assert.Contains(t, gotQuery, "interval=1d")
	assert.Contains(t, gotQuery, "range=6mo")

	require.Len(t, points, 2, "null bars are skipped")
	assert.Equal(t, "SPX", points[0].Symbol)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), points[0].Date)
	assert.Equal(t, time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), points[1].Date)
	assert.Equal(t, 185.64, points[0].Close)
	assert.Equal(t, int64(82488700), points[0].Volume)
}

func TestYahooFetcher_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v8/finance/chart/MISSING" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
			return
		}
		_, _ = w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL

	_, err := f.FetchDailyBars(context.Background(), "MISSING", "1mo")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.False(t, se.Temporary())

	_, err = f.FetchDailyBars(context.Background(), "EMPTY", "1mo")
	assert.Error(t, err)

	_, err = f.FetchDailyBars(context.Background(), "AAPL", "7d")
	assert.ErrorContains(t, err, "unsupported period")
}

func TestRESTFetcher_FetchDailyBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/bars/daily", r.URL.Path)
		assert.Equal(t, "NVDA", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1y", r.URL.Query().Get("period"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[
			{"timestamp":1704378600,"open":"48.1","high":"49.2","low":"47.6","close":"48.2","volume":"1000"},
			{"timestamp":1704292200,"open":47.5,"high":48.0,"low":47.0,"close":47.7,"volume":900.6}
		]`))
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL+"/", "secret", "")
	points, err := f.FetchDailyBars(context.Background(), "NVDA", "1y")
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), points[0].Date, "sorted chronologically")
	assert.Equal(t, 47.7, points[0].Close)
	assert.Equal(t, int64(901), points[0].Volume)
	assert.Equal(t, 48.2, points[1].Close)
	assert.Equal(t, "NVDA", points[1].Symbol)
}

func TestMockFetcher_Deterministic(t *testing.T) {
	end := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	m := &MockFetcher{Price: 50, End: end}

	a, err := m.FetchDailyBars(context.Background(), "X", "1mo")
	require.NoError(t, err)
	b, err := m.FetchDailyBars(context.Background(), "X", "1mo")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	require.Len(t, a, 21)
	assert.Equal(t, end, a[len(a)-1].Date)
	assert.Equal(t, 2, m.Calls("X"))
}

func TestCollector_Collect(t *testing.T) {
	end := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	m := &MockFetcher{
		End: end,
		Errs: map[string]error{
			"BAD": errors.New("connection reset"),
		},
	}
	c := NewCollector(m, []string{"AAPL", "BAD", "SPY"}, "1mo")
	c.RetryInterval = time.Millisecond
	c.MaxRetries = 2

	points, err := c.Collect(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "BAD")
	assert.Equal(t, []string{"BAD"}, FailedSymbols(err))
	assert.Len(t, points, 42)
	assert.Equal(t, 3, m.Calls("BAD"), "first attempt plus two retries")
	assert.Equal(t, 1, m.Calls("AAPL"))

	symbols := map[string]bool{}
	for _, p := range points {
		symbols[p.Symbol] = true
	}
	assert.Equal(t, map[string]bool{"AAPL": true, "SPY": true}, symbols)
}

func TestCollector_PermanentErrorNotRetried(t *testing.T) {
	m := &MockFetcher{
		Errs: map[string]error{
			"GONE": &StatusError{Source: "test", Code: http.StatusNotFound},
		},
	}
	c := NewCollector(m, []string{"GONE"}, "1mo")
	c.RetryInterval = time.Millisecond

	points, err := c.Collect(context.Background())
	assert.Empty(t, points)
	assert.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, []string{"GONE"}, FailedSymbols(err))
	assert.Equal(t, 1, m.Calls("GONE"))
}

func TestCollector_RetriesUntilSuccess(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(chartJSON))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	c := NewCollector(f, []string{"AAPL"}, "6mo")
	c.RetryInterval = time.Millisecond

	points, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Len(t, points, 2)
	assert.Equal(t, int32(3), hits.Load())
}

func TestCollector_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := &MockFetcher{Errs: map[string]error{"X": errors.New("flaky")}}
	c := NewCollector(m, []string{"X"}, "1mo")
	c.MaxRetries = 100
	c.RetryInterval = time.Hour

	_, err := c.Collect(ctx)
	assert.Error(t, err)
	assert.LessOrEqual(t, m.Calls("X"), 1)
}

package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"QuantScout/internal/model"
)

// Fetcher defines the interface for fetching daily market data.
type Fetcher interface {
	FetchDailyBars(ctx context.Context, symbol, period string) ([]model.PricePoint, error)
	Name() string
}

// periodDays approximates the number of trading days in a lookback period.
var periodDays = map[string]int{
	"1mo": 21,
	"3mo": 63,
	"6mo": 126,
	"1y":  252,
	"2y":  504,
	"5y":  1260,
}

// ValidPeriod reports whether period is a supported lookback window.
func ValidPeriod(period string) bool {
	_, ok := periodDays[period]
	return ok
}

func checkPeriod(period string) error {
	if !ValidPeriod(period) {
		return fmt.Errorf("unsupported period %q", period)
	}
	return nil
}

// StatusError is returned when a data source answers with a non-200 status.
type StatusError struct {
	Source string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d, body: %s", e.Source, e.Code, e.Body)
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

// tradingDay truncates a unix timestamp to midnight UTC of its day.
func tradingDay(ts int64) time.Time {
	t := time.Unix(ts, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

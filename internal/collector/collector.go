package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"QuantScout/internal/metrics"
	"QuantScout/internal/model"
)

var log = logrus.WithField("component", "collector")

// ErrNoData is returned when no symbol produced any bars.
var ErrNoData = errors.New("no market data collected")

// SymbolError reports a symbol that could not be collected.
type SymbolError struct {
	Symbol string
	Err    error
}

func (e *SymbolError) Error() string { return e.Symbol + ": " + e.Err.Error() }

func (e *SymbolError) Unwrap() error { return e.Err }

// FailedSymbols lists the symbols named by the SymbolErrors combined in err.
func FailedSymbols(err error) []string {
	var symbols []string
	for _, e := range multierr.Errors(err) {
		var se *SymbolError
		if errors.As(e, &se) {
			symbols = append(symbols, se.Symbol)
		}
	}
	return symbols
}

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	End   time.Time // last bar date, today when zero
	Bars  map[string][]model.PricePoint
	Errs  map[string]error

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, symbol, period string) ([]model.PricePoint, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[symbol]++
	m.mu.Unlock()

	if err, ok := m.Errs[symbol]; ok {
		return nil, err
	}
	if bars, ok := m.Bars[symbol]; ok {
		return bars, nil
	}
	if err := checkPeriod(period); err != nil {
		return nil, err
	}
	end := m.End
	if end.IsZero() {
		end = time.Now().UTC().Truncate(24 * time.Hour)
	}
	price := m.Price
	if price <= 0 {
		price = 100
	}
	return generateMockBars(symbol, price, periodDays[period], end), nil
}

// Calls returns how many times symbol was requested.
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

// generateMockBars produces an oscillating series ending at end, one bar per day.
func generateMockBars(symbol string, basePrice float64, count int, end time.Time) []model.PricePoint {
	bars := make([]model.PricePoint, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + 0.05*math.Sin(float64(i)/4) + float64(i-count/2)*0.0005)
		bars[i] = model.PricePoint{
			Symbol: symbol,
			Date:   end.AddDate(0, 0, -(count - 1 - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// Collector downloads daily bars for a set of symbols.
type Collector struct {
	Fetcher Fetcher
	Symbols []string
	Period  string

	// MaxRetries bounds the attempts per symbol after the first one.
	MaxRetries uint64
	// RetryInterval is the initial backoff interval; zero uses the library default.
	RetryInterval time.Duration
	// Concurrency limits parallel fetches; zero means one per symbol.
	Concurrency int
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, symbols []string, period string) *Collector {
	return &Collector{
		Fetcher:    fetcher,
		Symbols:    symbols,
		Period:     period,
		MaxRetries: 3,
	}
}

func (c *Collector) newBackOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	if c.RetryInterval > 0 {
		bo.InitialInterval = c.RetryInterval
		bo.MaxInterval = 10 * c.RetryInterval
	}
	return backoff.WithContext(backoff.WithMaxRetries(bo, c.MaxRetries), ctx)
}

func (c *Collector) fetch(ctx context.Context, symbol string) ([]model.PricePoint, error) {
	var points []model.PricePoint
	op := func() error {
		bars, err := c.Fetcher.FetchDailyBars(ctx, symbol, c.Period)
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && !se.Temporary() {
				return backoff.Permanent(err)
			}
			log.WithError(err).Warnf("fetch %s failed, retrying", symbol)
			return err
		}
		points = bars
		return nil
	}
	if err := backoff.Retry(op, c.newBackOff(ctx)); err != nil {
		return nil, err
	}
	return points, nil
}

// Collect fetches every symbol concurrently and returns the long-format rows
// of the symbols that succeeded. Failed symbols are reported in the combined
// error; ErrNoData is returned when nothing was collected.
func (c *Collector) Collect(ctx context.Context) ([]model.PricePoint, error) {
	if len(c.Symbols) == 0 {
		return nil, fmt.Errorf("collect: %w", ErrNoData)
	}

	results := make([][]model.PricePoint, len(c.Symbols))
	errs := make([]error, len(c.Symbols))

	var g errgroup.Group
	if c.Concurrency > 0 {
		g.SetLimit(c.Concurrency)
	}
	for i, symbol := range c.Symbols {
		g.Go(func() error {
			points, err := c.fetch(ctx, symbol)
			if err != nil {
				metrics.FetchFailuresTotal.WithLabelValues(symbol).Inc()
				errs[i] = &SymbolError{Symbol: symbol, Err: err}
				return nil
			}
			if len(points) == 0 {
				errs[i] = &SymbolError{Symbol: symbol, Err: ErrNoData}
				return nil
			}
			results[i] = points
			return nil
		})
	}
	_ = g.Wait()

	var all []model.PricePoint
	var err error
	for i, symbol := range c.Symbols {
		if errs[i] != nil {
			log.WithError(errs[i]).Warnf("skipping %s", symbol)
			err = multierr.Append(err, errs[i])
			continue
		}
		log.Infof("collected %d bars for %s via %s", len(results[i]), symbol, c.Fetcher.Name())
		all = append(all, results[i]...)
	}

	if len(all) == 0 {
		return nil, multierr.Append(ErrNoData, err)
	}
	return all, err
}

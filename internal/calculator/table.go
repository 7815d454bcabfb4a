package calculator

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"QuantScout/internal/model"
)

// ErrEmptyInput is returned when a table is constructed from no rows.
var ErrEmptyInput = errors.New("calculator: empty input")

// RowError reports an input row that violates the price table invariants.
type RowError struct {
	Index  int
	Symbol string
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("calculator: row %d (%q): %s", e.Index, e.Symbol, e.Reason)
}

// SeriesFunc computes one value per point of a single symbol's series.
type SeriesFunc func(s model.Series) []float64

// MultiSeriesFunc computes several columns at once, one slice per column.
type MultiSeriesFunc func(s model.Series) [][]float64

type seriesData struct {
	series  model.Series
	columns map[string][]float64
}

// Table is an ordered multi-symbol price table. It is never mutated after
// construction: adding columns returns a new Table that shares the price data.
type Table struct {
	series  []*seriesData // sorted by symbol
	columns []string      // in insertion order
}

// New groups points by symbol and sorts each group by date. Duplicate
// (symbol, date) rows collapse to the last occurrence.
func New(points []model.PricePoint) (*Table, error) {
	if len(points) == 0 {
		return nil, ErrEmptyInput
	}

	type indexed struct {
		pos int
		pt  model.PricePoint
	}
	groups := make(map[string][]indexed)
	for i, p := range points {
		if err := validatePoint(i, p); err != nil {
			return nil, err
		}
		groups[p.Symbol] = append(groups[p.Symbol], indexed{pos: i, pt: p})
	}

	symbols := make([]string, 0, len(groups))
	for sym := range groups {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	t := &Table{series: make([]*seriesData, 0, len(symbols))}
	for _, sym := range symbols {
		g := groups[sym]
		sort.SliceStable(g, func(i, j int) bool {
			return g[i].pt.Date.Before(g[j].pt.Date)
		})
		pts := make([]model.PricePoint, 0, len(g))
		for _, e := range g {
			if n := len(pts); n > 0 && pts[n-1].Date.Equal(e.pt.Date) {
				pts[n-1] = e.pt
				continue
			}
			pts = append(pts, e.pt)
		}
		t.series = append(t.series, &seriesData{
			series:  model.Series{Symbol: sym, Points: pts},
			columns: map[string][]float64{},
		})
	}
	return t, nil
}

func validatePoint(i int, p model.PricePoint) error {
	if p.Symbol == "" {
		return &RowError{Index: i, Reason: "empty symbol"}
	}
	for _, v := range []float64{p.Open, p.High, p.Low, p.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &RowError{Index: i, Symbol: p.Symbol, Reason: "non-finite price"}
		}
	}
	if p.Volume < 0 {
		return &RowError{Index: i, Symbol: p.Symbol, Reason: "negative volume"}
	}
	return nil
}

// Symbols returns the symbols in table order.
func (t *Table) Symbols() []string {
	out := make([]string, len(t.series))
	for i, sd := range t.series {
		out[i] = sd.series.Symbol
	}
	return out
}

// Series returns the series of one symbol.
func (t *Table) Series(symbol string) (model.Series, bool) {
	for _, sd := range t.series {
		if sd.series.Symbol == symbol {
			return sd.series, true
		}
	}
	return model.Series{}, false
}

// Len returns the total number of rows across all symbols.
func (t *Table) Len() int {
	n := 0
	for _, sd := range t.series {
		n += sd.series.Len()
	}
	return n
}

// Columns returns the derived field names in the order they were first added.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// HasColumn reports whether the named derived field exists.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.columns {
		if c == name {
			return true
		}
	}
	return false
}

// Column returns the values of a derived field for one symbol.
func (t *Table) Column(symbol, name string) ([]float64, bool) {
	for _, sd := range t.series {
		if sd.series.Symbol == symbol {
			vals, ok := sd.columns[name]
			return vals, ok
		}
	}
	return nil, false
}

// LatestDate returns the most recent date across all symbols.
func (t *Table) LatestDate() time.Time {
	var latest time.Time
	for _, sd := range t.series {
		if n := sd.series.Len(); n > 0 {
			if d := sd.series.Points[n-1].Date; d.After(latest) {
				latest = d
			}
		}
	}
	return latest
}

// ForEachSymbol calls fn for every series in symbol order and stops at the first error.
func (t *Table) ForEachSymbol(fn func(s model.Series) error) error {
	for _, sd := range t.series {
		if err := fn(sd.series); err != nil {
			return fmt.Errorf("symbol %s: %w", sd.series.Symbol, err)
		}
	}
	return nil
}

// AddColumn returns a table extended with the named field, computed by fn
// from each series alone. An existing field of the same name is replaced.
func (t *Table) AddColumn(name string, fn SeriesFunc) (*Table, error) {
	return t.AddColumns([]string{name}, func(s model.Series) [][]float64 {
		return [][]float64{fn(s)}
	})
}

// AddColumns is AddColumn for several fields computed together.
func (t *Table) AddColumns(names []string, fn MultiSeriesFunc) (*Table, error) {
	if len(names) == 0 {
		return t, nil
	}
	for _, name := range names {
		if name == "" {
			return nil, errors.New("calculator: empty column name")
		}
	}

	results := make([][][]float64, len(t.series))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, sd := range t.series {
		g.Go(func() error {
			cols := fn(sd.series)
			if len(cols) != len(names) {
				return fmt.Errorf("calculator: %s: got %d columns, want %d", sd.series.Symbol, len(cols), len(names))
			}
			for j, col := range cols {
				if len(col) != sd.series.Len() {
					return fmt.Errorf("calculator: %s: column %s has %d values, want %d",
						sd.series.Symbol, names[j], len(col), sd.series.Len())
				}
			}
			results[i] = cols
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	next := &Table{
		series:  make([]*seriesData, len(t.series)),
		columns: t.Columns(),
	}
	for _, name := range names {
		if !next.HasColumn(name) {
			next.columns = append(next.columns, name)
		}
	}
	for i, sd := range t.series {
		cols := make(map[string][]float64, len(sd.columns)+len(names))
		for k, v := range sd.columns {
			cols[k] = v
		}
		for j, name := range names {
			cols[name] = results[i][j]
		}
		next.series[i] = &seriesData{series: sd.series, columns: cols}
	}
	return next, nil
}

// Rows returns the flattened view ordered by symbol, then date ascending.
func (t *Table) Rows() []model.Row {
	rows := make([]model.Row, 0, t.Len())
	for _, sd := range t.series {
		for i, p := range sd.series.Points {
			ind := make(model.Indicators, len(t.columns))
			for _, name := range t.columns {
				ind[name] = sd.columns[name][i]
			}
			rows = append(rows, model.Row{PricePoint: p, Indicators: ind})
		}
	}
	return rows
}

package calculator

import (
	"errors"
	"fmt"
	"math"

	"QuantScout/internal/model"
)

// ErrInvalidWindow is returned for a rolling window smaller than one.
var ErrInvalidWindow = errors.New("calculator: window must be positive")

// SMAColumn returns the field name of SMA(window).
func SMAColumn(window int) string { return fmt.Sprintf("sma_%d", window) }

// RSIColumn returns the field name of RSI(window).
func RSIColumn(window int) string { return fmt.Sprintf("rsi_%d", window) }

// Analyzer chains indicator computations over a price table. Every call
// replaces the current table with an extended copy; the first error sticks
// and turns later calls into no-ops.
type Analyzer struct {
	table *Table
	err   error
}

// NewAnalyzer starts a pipeline on t.
func NewAnalyzer(t *Table) *Analyzer {
	return &Analyzer{table: t}
}

// AddSMA adds sma_<window>.
func (a *Analyzer) AddSMA(window int) *Analyzer {
	if !a.checkWindow(window) {
		return a
	}
	return a.apply([]string{SMAColumn(window)}, func(s model.Series) [][]float64 {
		return [][]float64{SMA(s.Closes(), window)}
	})
}

// AddRSI adds rsi_<window>.
func (a *Analyzer) AddRSI(window int) *Analyzer {
	if !a.checkWindow(window) {
		return a
	}
	return a.apply([]string{RSIColumn(window)}, func(s model.Series) [][]float64 {
		return [][]float64{RSI(s.Closes(), window)}
	})
}

// AddBollingerBands adds bb_mid, bb_upper and bb_lower.
func (a *Analyzer) AddBollingerBands(window int, numStd float64) *Analyzer {
	if !a.checkWindow(window) {
		return a
	}
	if math.IsNaN(numStd) || math.IsInf(numStd, 0) {
		a.err = fmt.Errorf("calculator: invalid band width %v", numStd)
		return a
	}
	names := []string{model.FieldBBMid, model.FieldBBUpper, model.FieldBBLower}
	return a.apply(names, func(s model.Series) [][]float64 {
		mid, upper, lower := Bollinger(s.Closes(), window, numStd)
		return [][]float64{mid, upper, lower}
	})
}

// Table returns the augmented table or the first error of the chain.
func (a *Analyzer) Table() (*Table, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.table, nil
}

// Err returns the first error of the chain.
func (a *Analyzer) Err() error { return a.err }

func (a *Analyzer) checkWindow(window int) bool {
	if a.err != nil {
		return false
	}
	if window < 1 {
		a.err = fmt.Errorf("%w: %d", ErrInvalidWindow, window)
		return false
	}
	return true
}

func (a *Analyzer) apply(names []string, fn MultiSeriesFunc) *Analyzer {
	if a.err != nil {
		return a
	}
	next, err := a.table.AddColumns(names, fn)
	if err != nil {
		a.err = err
		return a
	}
	a.table = next
	return a
}

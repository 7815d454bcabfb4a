package strategy

import (
	"math"

	"QuantScout/internal/calculator"
	"QuantScout/internal/model"
)

// RSIWindow is the window RSIReversal evaluates against.
const RSIWindow = 14

// Bollinger parameters used by BollingerBreakdown when bands are absent.
const (
	BollingerWindow = 20
	BollingerStd    = 2.0
)

// RSIReversal flags oversold rows: rsi_14 strictly below Threshold.
type RSIReversal struct {
	Threshold float64
}

func (s RSIReversal) Name() string { return "rsi_reversal" }

// Evaluate returns every row, across all symbols and dates, whose RSI(14) is
// below the threshold. RSI(14) is computed on a derived table when missing.
func (s RSIReversal) Evaluate(t *calculator.Table) ([]model.Signal, error) {
	if !t.HasColumn(model.FieldRSI14) {
		derived, err := calculator.NewAnalyzer(t).AddRSI(RSIWindow).Table()
		if err != nil {
			return nil, err
		}
		t = derived
	}
	return filterRows(t, s.Name(), func(r model.Row) bool {
		rsi, ok := r.Indicators.Get(model.FieldRSI14)
		return ok && rsi < s.Threshold
	}), nil
}

// BollingerBreakdown flags rows that closed below the lower band.
type BollingerBreakdown struct{}

func (s BollingerBreakdown) Name() string { return "bollinger_breakdown" }

// Evaluate returns the rows whose close is strictly below bb_lower.
// Bollinger(20, 2) is computed on a derived table when missing.
func (s BollingerBreakdown) Evaluate(t *calculator.Table) ([]model.Signal, error) {
	if !t.HasColumn(model.FieldBBLower) {
		derived, err := calculator.NewAnalyzer(t).AddBollingerBands(BollingerWindow, BollingerStd).Table()
		if err != nil {
			return nil, err
		}
		t = derived
	}
	return filterRows(t, s.Name(), func(r model.Row) bool {
		lower, ok := r.Indicators.Get(model.FieldBBLower)
		return ok && !math.IsNaN(r.Close) && r.Close < lower
	}), nil
}

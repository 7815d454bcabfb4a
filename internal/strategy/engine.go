package strategy

import (
	"fmt"

	"QuantScout/internal/calculator"
	"QuantScout/internal/model"
)

// Strategy selects the rows of a price table that meet a trading rule.
// Implementations read the table and never modify it.
type Strategy interface {
	Name() string
	Evaluate(t *calculator.Table) ([]model.Signal, error)
}

// Evaluate runs every strategy against the same table and concatenates the
// results in strategy order.
func Evaluate(t *calculator.Table, strategies ...Strategy) ([]model.Signal, error) {
	var all []model.Signal
	for _, s := range strategies {
		signals, err := s.Evaluate(t)
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", s.Name(), err)
		}
		all = append(all, signals...)
	}
	return all, nil
}

// filterRows returns the rows matching pred in flattened-view order.
func filterRows(t *calculator.Table, name string, pred func(r model.Row) bool) []model.Signal {
	var signals []model.Signal
	for _, r := range t.Rows() {
		if pred(r) {
			signals = append(signals, model.Signal{Row: r, Strategy: name})
		}
	}
	return signals
}

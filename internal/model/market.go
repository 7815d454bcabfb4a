package model

import (
	"encoding/json"
	"math"
	"sort"
	"time"
)

// PricePoint is one trading day of one symbol.
type PricePoint struct {
	Symbol string
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Series holds the chronologically ordered points of a single symbol.
type Series struct {
	Symbol string
	Points []PricePoint
}

// Len returns the number of points in the series.
func (s Series) Len() int { return len(s.Points) }

// Closes extracts the close prices in chronological order.
func (s Series) Closes() []float64 {
	closes := make([]float64, len(s.Points))
	for i, p := range s.Points {
		closes[i] = p.Close
	}
	return closes
}

// Indicators maps a derived field name to its value. NaN marks a gap.
type Indicators map[string]float64

// Get returns the named value and whether it is defined.
func (ind Indicators) Get(name string) (float64, bool) {
	v, ok := ind[name]
	if !ok || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Names returns the field names in sorted order.
func (ind Indicators) Names() []string {
	names := make([]string, 0, len(ind))
	for name := range ind {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarshalJSON renders undefined values as null.
func (ind Indicators) MarshalJSON() ([]byte, error) {
	out := make(map[string]*float64, len(ind))
	for name, v := range ind {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[name] = nil
			continue
		}
		out[name] = &v
	}
	return json.Marshal(out)
}

// Row is one element of the flattened long-format view of a price table.
type Row struct {
	PricePoint
	Indicators Indicators
}

// MarshalJSON flattens the price fields and the indicator map into one object.
func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Symbol     string     `json:"symbol"`
		Date       string     `json:"date"`
		Open       float64    `json:"open"`
		High       float64    `json:"high"`
		Low        float64    `json:"low"`
		Close      float64    `json:"close"`
		Volume     int64      `json:"volume"`
		Indicators Indicators `json:"indicators"`
	}{
		Symbol:     r.Symbol,
		Date:       r.Date.Format("2006-01-02"),
		Open:       r.Open,
		High:       r.High,
		Low:        r.Low,
		Close:      r.Close,
		Volume:     r.Volume,
		Indicators: r.Indicators,
	})
}

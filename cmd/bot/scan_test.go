package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuantScout/internal/config"
	"QuantScout/internal/model"
	"QuantScout/internal/scheduler"
)

func TestPrintSignals(t *testing.T) {
	date := time.Date(2024, 4, 19, 0, 0, 0, 0, time.UTC)
	res := &scheduler.ScanResult{
		Date:   date,
		Failed: []string{"BAD"},
		Reports: []model.SignalReport{{
			Signal: model.Signal{
				Row: model.Row{
					PricePoint: model.PricePoint{Symbol: "AAPL", Date: date, Close: 172.5},
					Indicators: model.Indicators{model.FieldRSI14: 28.44},
				},
				Strategy: "rsi_reversal",
			},
			News:      []model.NewsItem{{Title: "Apple beats estimates"}},
			Sentiment: model.Sentiment{Score: 0.4, Summary: "Bullish (Positive News)"},
		}},
	}

	var buf bytes.Buffer
	printSignals(&buf, res)
	out := buf.String()
	assert.Contains(t, out, "Date: 2024-04-19")
	assert.Contains(t, out, "Failed symbols: [BAD]")
	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, "172.50")
	assert.Contains(t, out, "28.4")
	assert.Contains(t, out, "Apple beats estimates")
}

func TestPrintSignals_Empty(t *testing.T) {
	var buf bytes.Buffer
	printSignals(&buf, &scheduler.ScanResult{Date: time.Date(2024, 4, 19, 0, 0, 0, 0, time.UTC)})
	assert.Contains(t, buf.String(), "No buy signals.")
}

func TestNewFetcher(t *testing.T) {
	cfg := loadConfigFrom(t, "market:\n  base_url: http://localhost:9000\n")
	assert.Equal(t, "rest", newFetcher(cfg).Name())

	useMock = true
	defer func() { useMock = false }()
	assert.Equal(t, "mock", newFetcher(cfg).Name())
}

func loadConfigFrom(t *testing.T, yaml string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	prev := configPath
	configPath = path
	t.Cleanup(func() { configPath = prev })

	cfg, err := loadConfig()
	require.NoError(t, err)
	return cfg
}

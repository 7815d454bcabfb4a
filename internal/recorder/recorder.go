package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"QuantScout/internal/model"
)

var log = logrus.WithField("component", "recorder")

// AnalysisRecord is the stored verdict for one symbol on one trading day.
type AnalysisRecord struct {
	Symbol     string
	TradeDate  time.Time
	Strategies []string
	Close      float64
	RSI        float64 // NaN when undefined
	Indicators model.Indicators
	Score      float64
	Sentiment  string
	Summary    string
}

// NewAnalysisRecord builds the record for a reported signal. Reports of the
// same symbol and day are merged by MergeStrategies before saving.
func NewAnalysisRecord(r model.SignalReport) *AnalysisRecord {
	rsi, ok := r.Signal.Indicators.Get(model.FieldRSI14)
	if !ok {
		rsi = math.NaN()
	}
	return &AnalysisRecord{
		Symbol:     r.Signal.Symbol,
		TradeDate:  r.Signal.Date,
		Strategies: []string{r.Signal.Strategy},
		Close:      r.Signal.Close,
		RSI:        rsi,
		Indicators: r.Signal.Indicators,
		Score:      r.Sentiment.Score,
		Sentiment:  r.Sentiment.Label,
		Summary:    r.Sentiment.Summary,
	}
}

// MergeStrategies adds the strategies of other to rec, keeping them sorted
// and unique.
func (rec *AnalysisRecord) MergeStrategies(other *AnalysisRecord) {
	seen := make(map[string]bool, len(rec.Strategies))
	for _, s := range rec.Strategies {
		seen[s] = true
	}
	for _, s := range other.Strategies {
		if !seen[s] {
			rec.Strategies = append(rec.Strategies, s)
			seen[s] = true
		}
	}
	sort.Strings(rec.Strategies)
}

func (rec *AnalysisRecord) tradeDay() string { return rec.TradeDate.UTC().Format("2006-01-02") }

func (rec *AnalysisRecord) strategyList() string { return strings.Join(rec.Strategies, ",") }

func (rec *AnalysisRecord) rsiValue() sql.NullFloat64 {
	if math.IsNaN(rec.RSI) || math.IsInf(rec.RSI, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: rec.RSI, Valid: true}
}

func (rec *AnalysisRecord) indicatorsJSON() (string, error) {
	data, err := json.Marshal(rec.Indicators)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ScanEvent records one completed scan run.
type ScanEvent struct {
	StartedAt time.Time
	Duration  time.Duration
	Trigger   string // "cron", "command" or "cli"
	Symbols   int
	Rows      int
	Signals   int
	Failed    []string
	Error     string
}

// Recorder persists historical data for analysis.
type Recorder interface {
	SaveAnalysis(ctx context.Context, rec *AnalysisRecord) error
	RecordScan(ctx context.Context, evt *ScanEvent) error
	Close() error
}

// Open picks the backend from the configuration: Postgres when url is set,
// SQLite when path is set, otherwise a no-op recorder.
func Open(url, sqlitePath string) (Recorder, error) {
	switch {
	case url != "":
		return NewPostgresRecorder(url)
	case sqlitePath != "":
		return NewSQLiteRecorder(sqlitePath)
	default:
		log.Warn("no database configured, history disabled")
		return NewNoopRecorder(), nil
	}
}

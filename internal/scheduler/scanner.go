package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"QuantScout/internal/calculator"
	"QuantScout/internal/collector"
	"QuantScout/internal/metrics"
	"QuantScout/internal/model"
	"QuantScout/internal/news"
	"QuantScout/internal/publisher"
	"QuantScout/internal/recorder"
	"QuantScout/internal/strategy"
)

var log = logrus.WithField("component", "scheduler")

// Scan triggers recorded with every scan.
const (
	TriggerCron    = "cron"
	TriggerCommand = "command"
	TriggerCLI     = "cli"
)

// Source supplies the long-format price rows of one scan.
type Source interface {
	Collect(ctx context.Context) ([]model.PricePoint, error)
}

// NewsAnalyzer provides the news context for a symbol.
type NewsAnalyzer interface {
	Analyze(ctx context.Context, symbol string) (*news.Result, error)
}

// AnalysisParams selects the indicator windows computed on every scan.
type AnalysisParams struct {
	SMAWindow       int
	RSIWindow       int
	BollingerWindow int
	BollingerStd    float64
}

// ScanResult is the outcome of one scan.
type ScanResult struct {
	StartedAt time.Time
	Duration  time.Duration
	Date      time.Time // latest trading date in the data
	Table     *calculator.Table
	Signals   []model.Signal // signals on Date only
	Reports   []model.SignalReport
	Failed    []string // symbols that could not be collected
}

// Scanner runs the collect, analyze, evaluate and report pipeline.
type Scanner struct {
	Source     Source
	Params     AnalysisParams
	Strategies []strategy.Strategy
	News       NewsAnalyzer // nil skips news analysis
	Recorder   recorder.Recorder
	Publisher  publisher.Publisher

	// NewsConcurrency bounds parallel news lookups; zero means 4.
	NewsConcurrency int
	Now             func() time.Time
}

func (s *Scanner) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// LatestOnly keeps the signals dated on date.
func LatestOnly(signals []model.Signal, date time.Time) []model.Signal {
	var out []model.Signal
	for _, sig := range signals {
		if sig.Date.Equal(date) {
			out = append(out, sig)
		}
	}
	return out
}

// Analyze derives the configured indicator columns from t. RSI(14) is always
// added because reports and records read it whatever RSIWindow is.
func (p AnalysisParams) Analyze(t *calculator.Table) (*calculator.Table, error) {
	a := calculator.NewAnalyzer(t).
		AddSMA(p.SMAWindow).
		AddRSI(p.RSIWindow)
	if p.RSIWindow != strategy.RSIWindow {
		a = a.AddRSI(strategy.RSIWindow)
	}
	return a.AddBollingerBands(p.BollingerWindow, p.BollingerStd).Table()
}

// Scan runs one full pass and returns its result. Partial data failures are
// reported in ScanResult.Failed; the error is set only when no result exists.
func (s *Scanner) Scan(ctx context.Context, trigger string) (res *ScanResult, err error) {
	started := s.now()
	res = &ScanResult{StartedAt: started}

	defer func() {
		res.Duration = s.now().Sub(started)
		s.finish(ctx, trigger, res, err)
	}()

	points, collectErr := s.Source.Collect(ctx)
	res.Failed = collector.FailedSymbols(collectErr)
	if len(points) == 0 {
		if collectErr == nil {
			collectErr = collector.ErrNoData
		}
		return res, fmt.Errorf("collect: %w", collectErr)
	}
	if collectErr != nil {
		log.WithError(collectErr).Warnf("continuing without %v", res.Failed)
	}

	tbl, err := calculator.New(points)
	if err != nil {
		return res, fmt.Errorf("build table: %w", err)
	}
	tbl, err = s.Params.Analyze(tbl)
	if err != nil {
		return res, fmt.Errorf("analyze: %w", err)
	}
	res.Table = tbl
	res.Date = tbl.LatestDate()

	signals, err := strategy.Evaluate(tbl, s.Strategies...)
	if err != nil {
		return res, err
	}
	res.Signals = LatestOnly(signals, res.Date)
	log.Infof("%d signals in total, %d on %s", len(signals), len(res.Signals), res.Date.Format("2006-01-02"))

	res.Reports = s.enrich(ctx, res.Signals)
	s.persist(ctx, res.Reports)
	return res, nil
}

// enrich attaches the news context to every signal, one lookup per symbol.
func (s *Scanner) enrich(ctx context.Context, signals []model.Signal) []model.SignalReport {
	reports := make([]model.SignalReport, len(signals))
	for i, sig := range signals {
		reports[i] = model.SignalReport{
			Signal:    sig,
			Sentiment: model.Sentiment{Label: model.SentimentNeutral, Summary: "News analysis disabled"},
		}
	}
	if s.News == nil || len(signals) == 0 {
		return reports
	}

	var symbols []string
	seen := map[string]bool{}
	for _, sig := range signals {
		if !seen[sig.Symbol] {
			seen[sig.Symbol] = true
			symbols = append(symbols, sig.Symbol)
		}
	}

	results := make([]*news.Result, len(symbols))
	limit := s.NewsConcurrency
	if limit <= 0 {
		limit = 4
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i, symbol := range symbols {
		g.Go(func() error {
			r, err := s.News.Analyze(ctx, symbol)
			if err != nil {
				log.WithError(err).Warnf("news analysis for %s failed", symbol)
				fallback := &news.Result{Sentiment: model.Sentiment{Label: model.SentimentError, Summary: "News analysis failed"}}
				if r != nil {
					fallback.News = r.News
				}
				r = fallback
			}
			results[i] = r
			return nil
		})
	}
	_ = g.Wait()

	bySymbol := make(map[string]*news.Result, len(symbols))
	for i, symbol := range symbols {
		bySymbol[symbol] = results[i]
	}
	for i := range reports {
		if r := bySymbol[reports[i].Signal.Symbol]; r != nil {
			reports[i].News = r.News
			reports[i].Sentiment = r.Sentiment
		}
	}
	return reports
}

// persist stores one analysis record per symbol and day and publishes every
// report. Failures are logged and never abort the scan.
func (s *Scanner) persist(ctx context.Context, reports []model.SignalReport) {
	records := map[string]*recorder.AnalysisRecord{}
	var keys []string
	for _, r := range reports {
		rec := recorder.NewAnalysisRecord(r)
		key := rec.Symbol + "|" + rec.TradeDate.Format("2006-01-02")
		if existing, ok := records[key]; ok {
			existing.MergeStrategies(rec)
			continue
		}
		records[key] = rec
		keys = append(keys, key)
	}
	sort.Strings(keys)

	if s.Recorder != nil {
		for _, key := range keys {
			if err := s.Recorder.SaveAnalysis(ctx, records[key]); err != nil {
				log.WithError(err).Errorf("save analysis %s", key)
			}
		}
	}

	if s.Publisher != nil {
		now := s.now()
		for _, r := range reports {
			if err := s.Publisher.PublishSignal(ctx, publisher.NewSignalEvent(r, now)); err != nil {
				log.WithError(err).Errorf("publish signal %s", r.Signal.Symbol)
			}
		}
	}
}

func (s *Scanner) finish(ctx context.Context, trigger string, res *ScanResult, err error) {
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case len(res.Failed) > 0:
		outcome = "partial"
	}
	metrics.ScansTotal.WithLabelValues(outcome).Inc()
	metrics.ScanDuration.Observe(res.Duration.Seconds())
	for _, sig := range res.Signals {
		metrics.SignalsTotal.WithLabelValues(sig.Strategy).Inc()
	}

	if s.Recorder == nil {
		return
	}
	evt := &recorder.ScanEvent{
		StartedAt: res.StartedAt,
		Duration:  res.Duration,
		Trigger:   trigger,
		Signals:   len(res.Signals),
		Failed:    res.Failed,
	}
	if res.Table != nil {
		evt.Symbols = len(res.Table.Symbols())
		evt.Rows = res.Table.Len()
	}
	if err != nil {
		evt.Error = err.Error()
	}
	// recording must survive a cancelled scan context
	recordCtx := context.WithoutCancel(ctx)
	if rerr := s.Recorder.RecordScan(recordCtx, evt); rerr != nil && !errors.Is(rerr, context.Canceled) {
		log.WithError(rerr).Error("record scan")
	}
}

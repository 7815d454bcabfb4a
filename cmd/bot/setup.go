package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"QuantScout/internal/collector"
	"QuantScout/internal/config"
	"QuantScout/internal/news"
	"QuantScout/internal/publisher"
	"QuantScout/internal/recorder"
	"QuantScout/internal/scheduler"
	"QuantScout/internal/strategy"
)

// app holds the wired components and the resources to release on exit.
type app struct {
	Scanner *scheduler.Scanner
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logrus.WithError(err).Warn("close")
		}
	}
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	switch {
	case useMock:
		return &collector.MockFetcher{}
	case cfg.Market.BaseURL != "":
		return collector.NewRESTFetcher(cfg.Market.BaseURL, cfg.Market.APIKey, cfg.Proxy)
	default:
		return collector.NewYahooFetcher(cfg.Proxy)
	}
}

func newNewsAgent(ctx context.Context, cfg *config.Config) (*news.Agent, func() error) {
	var analyzer news.Analyzer = news.LexiconAnalyzer{}
	agent := news.NewAgent(news.NewYahooNewsSearcher(cfg.Proxy), analyzer, cfg.News.MaxResults)
	if cfg.News.GeminiAPIKey == "" {
		logrus.Info("news sentiment: lexicon")
	} else if gemini, err := news.NewGeminiAnalyzer(ctx, cfg.News.GeminiAPIKey, cfg.News.GeminiModel, ""); err != nil {
		logrus.WithError(err).Warn("gemini unavailable, using lexicon sentiment")
	} else {
		agent.Analyzer = gemini
		agent.Fallback = analyzer
		logrus.Infof("news sentiment: gemini (%s)", cfg.News.GeminiModel)
	}

	if cfg.Redis.Addr == "" {
		return agent, nil
	}
	cache := news.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cache.Ping(pingCtx); err != nil {
		logrus.WithError(err).Warn("redis unavailable, news cache disabled")
		_ = cache.Close()
		return agent, nil
	}
	agent.Cache = cache
	return agent, cache.Close
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	fetcher := newFetcher(cfg)
	logrus.Infof("data source: %s", fetcher.Name())
	col := collector.NewCollector(fetcher, cfg.Market.Symbols, cfg.Market.Period)

	rec, err := recorder.Open(cfg.Database.URL, cfg.Database.SQLitePath)
	if err != nil {
		logrus.WithError(err).Warn("init recorder failed, using noop")
		rec = recorder.NewNoopRecorder()
	}
	a.closers = append(a.closers, rec.Close)

	pub := publisher.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	a.closers = append(a.closers, pub.Close)

	agent, closeCache := newNewsAgent(ctx, cfg)
	if closeCache != nil {
		a.closers = append(a.closers, closeCache)
	}

	strategies := []strategy.Strategy{strategy.RSIReversal{Threshold: cfg.Analysis.RSIThreshold}}
	if cfg.Analysis.Bollinger {
		strategies = append(strategies, strategy.BollingerBreakdown{})
	}

	a.Scanner = &scheduler.Scanner{
		Source: col,
		Params: scheduler.AnalysisParams{
			SMAWindow:       cfg.Analysis.SMAWindow,
			RSIWindow:       cfg.Analysis.RSIWindow,
			BollingerWindow: cfg.Analysis.BollingerWindow,
			BollingerStd:    cfg.Analysis.BollingerStd,
		},
		Strategies: strategies,
		News:       agent,
		Recorder:   rec,
		Publisher:  pub,
	}
	return a, nil
}

package news

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "news")

// Agent searches news for a symbol and scores it, reusing cached results
// for the same symbol within one UTC day.
type Agent struct {
	Searcher   Searcher
	Analyzer   Analyzer
	Fallback   Analyzer // used when Analyzer fails; may be nil
	Cache      Cache
	MaxResults int

	Now func() time.Time
}

// NewAgent creates an agent without caching.
func NewAgent(searcher Searcher, analyzer Analyzer, maxResults int) *Agent {
	return &Agent{
		Searcher:   searcher,
		Analyzer:   analyzer,
		Cache:      NoCache{},
		MaxResults: maxResults,
		Now:        time.Now,
	}
}

func (a *Agent) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

// Analyze returns the headlines and sentiment for symbol. A failed search is
// reported as an error; a failed analysis falls back when possible.
func (a *Agent) Analyze(ctx context.Context, symbol string) (*Result, error) {
	cache := a.Cache
	if cache == nil {
		cache = NoCache{}
	}
	key := CacheKey(symbol, a.now())

	if cached, ok, err := cache.Get(ctx, key); err != nil {
		log.WithError(err).Warnf("cache lookup for %s failed", symbol)
	} else if ok {
		log.Debugf("news cache hit for %s", symbol)
		return cached, nil
	}

	items, err := a.Searcher.Search(ctx, symbol, a.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("search news for %s: %w", symbol, err)
	}

	sentiment, err := a.Analyzer.Analyze(ctx, symbol, items)
	if err != nil {
		if a.Fallback == nil {
			return &Result{News: items, Sentiment: sentiment}, fmt.Errorf("analyze news for %s: %w", symbol, err)
		}
		log.WithError(err).Warnf("sentiment analysis for %s failed, using fallback", symbol)
		if sentiment, err = a.Fallback.Analyze(ctx, symbol, items); err != nil {
			return &Result{News: items, Sentiment: sentiment}, fmt.Errorf("fallback analysis for %s: %w", symbol, err)
		}
	}

	result := &Result{News: items, Sentiment: sentiment}
	if err := cache.Set(ctx, key, result); err != nil {
		log.WithError(err).Warnf("cache store for %s failed", symbol)
	}
	return result, nil
}

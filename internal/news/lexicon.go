package news

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/jonreiter/govader"

	"QuantScout/internal/model"
)

// Analyzer turns a set of headlines into a sentiment verdict.
type Analyzer interface {
	Analyze(ctx context.Context, symbol string, items []model.NewsItem) (model.Sentiment, error)
}

const (
	bullishThreshold = 0.1
	bearishThreshold = -0.1
	reasonThreshold  = 0.1
)

var (
	vaderOnce sync.Once
	vader     *govader.SentimentIntensityAnalyzer
)

// Polarity scores text in [-1, 1] with the VADER compound score.
func Polarity(text string) float64 {
	vaderOnce.Do(func() { vader = govader.NewSentimentIntensityAnalyzer() })
	return vader.PolarityScores(text).Compound
}

// LexiconAnalyzer scores headlines with the VADER lexicon.
type LexiconAnalyzer struct{}

func (LexiconAnalyzer) Analyze(_ context.Context, _ string, items []model.NewsItem) (model.Sentiment, error) {
	if len(items) == 0 {
		return model.Sentiment{Label: model.SentimentNeutral, Summary: "No news found"}, nil
	}

	var total float64
	var reasons []string
	for _, item := range items {
		p := Polarity(strings.TrimSpace(item.Title + " " + item.Body))
		total += p
		if math.Abs(p) > reasonThreshold {
			mood := "Positive"
			if p < 0 {
				mood = "Negative"
			}
			reasons = append(reasons, fmt.Sprintf("[%s] %s (Score: %.2f)", mood, item.Title, p))
		}
	}

	avg := total / float64(len(items))
	s := model.Sentiment{Score: avg, Label: model.SentimentNeutral, Summary: "Neutral", Reasons: reasons}
	switch {
	case avg > bullishThreshold:
		s.Label, s.Summary = model.SentimentBullish, "Bullish (Positive News)"
	case avg < bearishThreshold:
		s.Label, s.Summary = model.SentimentBearish, "Bearish (Negative News)"
	}
	return s, nil
}

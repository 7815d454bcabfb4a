package model

import "time"

// Well-known indicator field names.
const (
	FieldRSI14   = "rsi_14"
	FieldBBMid   = "bb_mid"
	FieldBBUpper = "bb_upper"
	FieldBBLower = "bb_lower"
)

// Signal is a row that satisfied a strategy predicate at evaluation time.
type Signal struct {
	Row
	Strategy string
}

// NewsItem is a single headline returned by a news search.
type NewsItem struct {
	Title       string    `json:"title"`
	Body        string    `json:"body,omitempty"`
	Source      string    `json:"source,omitempty"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
}

// Sentiment label values.
const (
	SentimentBullish = "BULLISH"
	SentimentBearish = "BEARISH"
	SentimentNeutral = "NEUTRAL"
	SentimentError   = "ERROR"
)

// Sentiment summarizes the news tone for one symbol.
type Sentiment struct {
	Score   float64  `json:"score"` // -1.0 ~ 1.0
	Label   string   `json:"label"`
	Summary string   `json:"summary"`
	Reasons []string `json:"reasons,omitempty"`
}

// SignalReport is a signal enriched with the news context used for reporting.
type SignalReport struct {
	Signal    Signal
	News      []NewsItem
	Sentiment Sentiment
}

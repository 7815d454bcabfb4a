package news

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"QuantScout/internal/model"
)

const (
	goodNews = "The quarter was good."           // compound 0.4404
	badNews  = "Guidance has never been good."  // compound -0.3412
	noScore  = "Company holds annual meeting"
)

func TestPolarity(t *testing.T) {
	assert.InDelta(t, 0.4404, Polarity(goodNews), 1e-3)
	assert.InDelta(t, -0.3412, Polarity(badNews), 1e-3)
	assert.Greater(t, Polarity("Apple shares jump on strong profit growth"), bullishThreshold)
	assert.Less(t, Polarity("Tesla reports losses amid fraud lawsuit"), bearishThreshold)
	assert.Equal(t, 0.0, Polarity(noScore))
	assert.Equal(t, 0.0, Polarity(""))
}

func TestLexiconAnalyzer(t *testing.T) {
	ctx := context.Background()

	s, err := LexiconAnalyzer{}.Analyze(ctx, "AAPL", nil)
	require.NoError(t, err)
	assert.Equal(t, model.SentimentNeutral, s.Label)
	assert.Equal(t, "No news found", s.Summary)
	assert.Zero(t, s.Score)

	s, err = LexiconAnalyzer{}.Analyze(ctx, "AAPL", []model.NewsItem{
		{Title: goodNews},
		{Title: noScore},
	})
	require.NoError(t, err)
	assert.Equal(t, model.SentimentBullish, s.Label)
	assert.InDelta(t, 0.2202, s.Score, 1e-3)
	assert.Equal(t, []string{"[Positive] The quarter was good. (Score: 0.44)"}, s.Reasons)

	s, err = LexiconAnalyzer{}.Analyze(ctx, "TSLA", []model.NewsItem{
		{Title: badNews},
		{Title: noScore},
	})
	require.NoError(t, err)
	assert.Equal(t, model.SentimentBearish, s.Label)
	assert.Equal(t, "Bearish (Negative News)", s.Summary)
	assert.Equal(t, []string{"[Negative] Guidance has never been good. (Score: -0.34)"}, s.Reasons)

	s, err = LexiconAnalyzer{}.Analyze(ctx, "X", []model.NewsItem{
		{Title: goodNews},
		{Title: badNews},
	})
	require.NoError(t, err)
	assert.Equal(t, model.SentimentNeutral, s.Label)
	assert.Equal(t, "Neutral", s.Summary)
	assert.Len(t, s.Reasons, 2)
}

func TestParseVerdict(t *testing.T) {
	s := ParseVerdict("SENTIMENT: BEARISH\nSCORE: -0.6\nREASON: Guidance cut: demand is weak.")
	assert.Equal(t, model.SentimentBearish, s.Label)
	assert.Equal(t, -0.6, s.Score)
	assert.Equal(t, "Guidance cut: demand is weak.", s.Summary)

	s = ParseVerdict("**SENTIMENT:** [bullish]\nSCORE: 3\nnoise")
	assert.Equal(t, model.SentimentBullish, s.Label)
	assert.Equal(t, 1.0, s.Score, "score is clamped")

	s = ParseVerdict("SENTIMENT: MAYBE\nSCORE: high")
	assert.Equal(t, model.SentimentNeutral, s.Label)
	assert.Zero(t, s.Score)
	assert.Equal(t, "analysis failed", s.Summary)
}

func newTestGemini(t *testing.T, key, modelName, baseURL string) *GeminiAnalyzer {
	t.Helper()
	g, err := NewGeminiAnalyzer(context.Background(), key, modelName, baseURL)
	require.NoError(t, err)
	return g
}

func TestGeminiAnalyzer(t *testing.T) {
	var prompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-goog-api-key"))
		body, _ := io.ReadAll(r.Body)
		prompt = gjson.GetBytes(body, "contents.0.parts.0.text").String()

		resp := map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{map[string]any{
					"text": "SENTIMENT: BULLISH\nSCORE: 0.7\nREASON: Strong iPhone demand.",
				}}},
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	g := newTestGemini(t, "key", "gemini-test", srv.URL)

	s, err := g.Analyze(context.Background(), "AAPL", []model.NewsItem{{Title: "iPhone sales beat"}})
	require.NoError(t, err)
	assert.Equal(t, model.SentimentBullish, s.Label)
	assert.Equal(t, 0.7, s.Score)
	assert.Equal(t, "Strong iPhone demand.", s.Summary)
	assert.Contains(t, prompt, "'AAPL'")
	assert.Contains(t, prompt, "- iPhone sales beat")
}

func TestGeminiAnalyzer_NoNewsSkipsRequest(t *testing.T) {
	g := newTestGemini(t, "key", "m", "http://127.0.0.1:0")

	s, err := g.Analyze(context.Background(), "AAPL", nil)
	require.NoError(t, err)
	assert.Equal(t, model.SentimentNeutral, s.Label)
}

func TestGeminiAnalyzer_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"API key not valid"}}`))
	}))
	defer srv.Close()

	g := newTestGemini(t, "bad", "m", srv.URL)

	s, err := g.Analyze(context.Background(), "AAPL", []model.NewsItem{{Title: "x"}})
	assert.ErrorContains(t, err, "API key not valid")
	assert.Equal(t, model.SentimentError, s.Label)
}

func TestYahooNewsSearcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/finance/search", r.URL.Path)
		assert.Equal(t, "NVDA", r.URL.Query().Get("q"))
		assert.Equal(t, "2", r.URL.Query().Get("newsCount"))
		_, _ = w.Write([]byte(`{"news":[
			{"title":"Nvidia rallies","publisher":"Reuters","link":"https://example.com/a","providerPublishTime":1704205800},
			{"title":"","publisher":"Empty"},
			{"title":"Chip stocks slump","publisher":"Bloomberg","link":"https://example.com/b"},
			{"title":"Third headline","publisher":"AP"}
		]}`))
	}))
	defer srv.Close()

	s := NewYahooNewsSearcher("")
	s.BaseURL = srv.URL

	items, err := s.Search(context.Background(), "NVDA", 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Nvidia rallies", items[0].Title)
	assert.Equal(t, "Reuters", items[0].Source)
	assert.Equal(t, time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC), items[0].PublishedAt)
	assert.Equal(t, "Chip stocks slump", items[1].Title)

	none, err := s.Search(context.Background(), "NVDA", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

type fakeSearcher struct {
	items []model.NewsItem
	err   error
	calls int
}

func (f *fakeSearcher) Search(context.Context, string, int) ([]model.NewsItem, error) {
	f.calls++
	return f.items, f.err
}

type failingAnalyzer struct{}

func (failingAnalyzer) Analyze(context.Context, string, []model.NewsItem) (model.Sentiment, error) {
	return model.Sentiment{Label: model.SentimentError}, errors.New("quota exceeded")
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string]*Result
}

func (m *memoryCache) Get(_ context.Context, key string) (*Result, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.data[key]
	return r, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, r *Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string]*Result{}
	}
	m.data[key] = r
	return nil
}

func TestAgent_CachesPerDay(t *testing.T) {
	searcher := &fakeSearcher{items: []model.NewsItem{{Title: goodNews}}}
	cache := &memoryCache{}
	now := time.Date(2024, 1, 2, 22, 30, 0, 0, time.UTC)

	a := NewAgent(searcher, LexiconAnalyzer{}, 3)
	a.Cache = cache
	a.Now = func() time.Time { return now }

	first, err := a.Analyze(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, model.SentimentBullish, first.Sentiment.Label)

	second, err := a.Analyze(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, searcher.calls)

	now = now.Add(24 * time.Hour)
	_, err = a.Analyze(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 2, searcher.calls, "a new day misses the cache")
	assert.Contains(t, cache.data, "quantscout:news:AAPL:2024-01-03")
}

func TestAgent_Fallback(t *testing.T) {
	searcher := &fakeSearcher{items: []model.NewsItem{{Title: badNews}}}

	a := NewAgent(searcher, failingAnalyzer{}, 3)
	_, err := a.Analyze(context.Background(), "TSLA")
	assert.ErrorContains(t, err, "quota exceeded")

	a.Fallback = LexiconAnalyzer{}
	r, err := a.Analyze(context.Background(), "TSLA")
	require.NoError(t, err)
	assert.Equal(t, model.SentimentBearish, r.Sentiment.Label)
}

func TestAgent_SearchError(t *testing.T) {
	a := NewAgent(&fakeSearcher{err: errors.New("timeout")}, LexiconAnalyzer{}, 3)
	_, err := a.Analyze(context.Background(), "AAPL")
	assert.ErrorContains(t, err, "timeout")
}

func TestCacheKey(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)
	assert.Equal(t, "quantscout:news:AAPL:2024-01-02", CacheKey("AAPL", time.Date(2024, 1, 3, 8, 0, 0, 0, loc)))
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	c := NewRedisCache(addr, "", 0, time.Minute)
	defer c.Close()
	require.NoError(t, c.Ping(ctx))

	key := CacheKey("TEST", time.Now())
	want := &Result{
		News:      []model.NewsItem{{Title: "headline"}},
		Sentiment: model.Sentiment{Score: 0.3, Label: model.SentimentBullish, Summary: "ok"},
	}
	require.NoError(t, c.Set(ctx, key, want))

	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.Sentiment, got.Sentiment)
	assert.Equal(t, "headline", got.News[0].Title)

	_, ok, err = c.Get(ctx, "quantscout:news:missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

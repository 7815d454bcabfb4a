package news

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"QuantScout/internal/model"
)

const yahooSearchURL = "https://query1.finance.yahoo.com"

// Searcher looks up recent headlines for a ticker.
type Searcher interface {
	Search(ctx context.Context, symbol string, limit int) ([]model.NewsItem, error)
}

// YahooNewsSearcher queries the Yahoo Finance search endpoint for news.
type YahooNewsSearcher struct {
	BaseURL string
	Client  *http.Client
}

// NewYahooNewsSearcher creates a searcher with optional proxy support.
func NewYahooNewsSearcher(proxyURL string) *YahooNewsSearcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooNewsSearcher{
		BaseURL: yahooSearchURL,
		Client:  &http.Client{Timeout: 15 * time.Second, Transport: transport},
	}
}

func (s *YahooNewsSearcher) Search(ctx context.Context, symbol string, limit int) ([]model.NewsItem, error) {
	if limit <= 0 {
		return nil, nil
	}
	q := url.Values{}
	q.Set("q", symbol)
	q.Set("newsCount", fmt.Sprint(limit))
	q.Set("quotesCount", "0")
	endpoint := strings.TrimRight(s.BaseURL, "/") + "/v1/finance/search?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news search: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("news read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news search: status %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("news search: invalid json")
	}

	var items []model.NewsItem
	gjson.GetBytes(body, "news").ForEach(func(_, v gjson.Result) bool {
		title := strings.TrimSpace(v.Get("title").String())
		if title == "" {
			return true
		}
		item := model.NewsItem{
			Title:  title,
			Body:   v.Get("summary").String(),
			Source: v.Get("publisher").String(),
			URL:    v.Get("link").String(),
		}
		if ts := v.Get("providerPublishTime").Int(); ts > 0 {
			item.PublishedAt = time.Unix(ts, 0).UTC()
		}
		items = append(items, item)
		return len(items) < limit
	})
	return items, nil
}

package news

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"google.golang.org/genai"

	"QuantScout/internal/model"
)

// GeminiAnalyzer asks a Gemini model to classify the headlines.
type GeminiAnalyzer struct {
	Model  string
	client *genai.Client
}

// NewGeminiAnalyzer creates an analyzer for the given model. An empty baseURL
// uses the public Gemini API endpoint.
func NewGeminiAnalyzer(ctx context.Context, apiKey, model, baseURL string) (*GeminiAnalyzer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  &http.Client{Timeout: 60 * time.Second},
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiAnalyzer{Model: model, client: client}, nil
}

const promptTemplate = `You are a professional Wall Street financial analyst.
Analyze the following news headlines for the stock '%s'.

[Headlines]
%s

[Instructions]
1. Determine the overall sentiment (BULLISH, BEARISH, or NEUTRAL).
2. Provide a sentiment score between -1.0 (Very Negative) and 1.0 (Very Positive).
3. Write a brief, 1-sentence analysis explaining the reason.

[Output Format]
Please output strictly in the following format:
SENTIMENT: [BULLISH/BEARISH/NEUTRAL]
SCORE: [Numeric Score]
REASON: [Analysis]`

func buildPrompt(symbol string, items []model.NewsItem) string {
	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("- ")
		sb.WriteString(item.Title)
	}
	return fmt.Sprintf(promptTemplate, symbol, sb.String())
}

func (g *GeminiAnalyzer) Analyze(ctx context.Context, symbol string, items []model.NewsItem) (model.Sentiment, error) {
	if len(items) == 0 {
		return model.Sentiment{Label: model.SentimentNeutral, Summary: "No news found"}, nil
	}

	text, err := g.generate(ctx, buildPrompt(symbol, items))
	if err != nil {
		return model.Sentiment{Label: model.SentimentError, Summary: "analysis failed"}, err
	}
	if strings.TrimSpace(text) == "" {
		return model.Sentiment{Label: model.SentimentNeutral, Summary: "No response"}, nil
	}
	return ParseVerdict(text), nil
}

func (g *GeminiAnalyzer) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.Model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	return resp.Text(), nil
}

// ParseVerdict reads the SENTIMENT, SCORE and REASON lines of a model reply.
// Missing or malformed fields keep their neutral defaults.
func ParseVerdict(text string) model.Sentiment {
	s := model.Sentiment{Label: model.SentimentNeutral, Summary: "analysis failed"}

	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		value = strings.Trim(value, "[]* \t")
		switch strings.ToUpper(strings.Trim(strings.TrimSpace(key), "*- ")) {
		case "SENTIMENT":
			switch label := strings.ToUpper(value); label {
			case model.SentimentBullish, model.SentimentBearish, model.SentimentNeutral:
				s.Label = label
			}
		case "SCORE":
			if f, err := strconv.ParseFloat(value, 64); err == nil && !math.IsNaN(f) {
				s.Score = math.Max(-1, math.Min(1, f))
			}
		case "REASON":
			if value != "" {
				s.Summary = value
			}
		}
	}
	return s
}

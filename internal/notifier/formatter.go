package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"QuantScout/internal/model"
)

const separator = "--------------------------------\n"

// SentimentIcon maps a sentiment score to the report icon.
func SentimentIcon(score float64) string {
	switch {
	case score > 0.1:
		return "✅"
	case score < -0.2:
		return "⚠️"
	default:
		return "⚖️"
	}
}

func formatPrice(p float64) string {
	return decimal.NewFromFloat(p).StringFixed(2)
}

func cleanHeadline(title string) string {
	return strings.NewReplacer("[", "(", "]", ")").Replace(title)
}

// FormatReport formats the signals of one trading day into a Telegram message.
func FormatReport(date time.Time, reports []model.SignalReport) string {
	var b strings.Builder

	b.WriteString("🚀 <b>US Stock Quant Report</b> 🚀\n")
	b.WriteString(fmt.Sprintf("📅 Date: %s\n", date.Format("2006-01-02")))
	b.WriteString(separator)

	for _, r := range reports {
		sig := r.Signal
		rsi := "n/a"
		if v, ok := sig.Indicators.Get(model.FieldRSI14); ok {
			rsi = fmt.Sprintf("%.1f", v)
		}
		b.WriteString(fmt.Sprintf("🎯 <b>%s</b> (RSI: %s) · %s\n", html.EscapeString(sig.Symbol), rsi, html.EscapeString(sig.Strategy)))
		b.WriteString(fmt.Sprintf("💰 Price: $%s\n", formatPrice(sig.Close)))

		s := r.Sentiment
		b.WriteString(fmt.Sprintf("%s AI: %s (%.2f)\n", SentimentIcon(s.Score), html.EscapeString(s.Summary), s.Score))
		if len(r.News) > 0 {
			b.WriteString(fmt.Sprintf("📰 News: %s\n", html.EscapeString(cleanHeadline(r.News[0].Title))))
		}
		b.WriteString(separator)
	}
	return b.String()
}

// FormatNoSignals is sent when the latest trading day produced no signal.
func FormatNoSignals(date time.Time) string {
	return fmt.Sprintf("✅ No buy signals today. (No Action)\n📅 Date: %s", date.Format("2006-01-02"))
}

// FormatScanFailure reports a scan that could not complete.
func FormatScanFailure(err error) string {
	return fmt.Sprintf("❌ Scan failed: %s", html.EscapeString(err.Error()))
}

// FormatHelp lists the supported bot commands.
func FormatHelp() string {
	return "Available commands:\n" +
		"• /scan - run a scan now\n" +
		"• /signals - show the latest signals\n" +
		"• /help - show this message"
}

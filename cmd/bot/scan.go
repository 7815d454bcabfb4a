package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"QuantScout/internal/model"
	"QuantScout/internal/notifier"
	"QuantScout/internal/scheduler"
)

var notify bool

func init() {
	scanCmd.Flags().BoolVar(&notify, "notify", false, "also send the report to Telegram")
	rootCmd.AddCommand(scanCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan and print the signals of the latest trading day",

	// SilenceUsage is an option to silence usage when an error occurs.
	SilenceUsage: true,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if notify {
			err = cfg.Validate()
		} else {
			err = cfg.ValidateAnalysis()
		}
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		var res *scheduler.ScanResult
		if notify {
			tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
			res, err = scheduler.NewScheduler(ctx, a.Scanner, tn).RunNow(ctx, scheduler.TriggerCLI)
		} else {
			res, err = a.Scanner.Scan(ctx, scheduler.TriggerCLI)
		}
		if err != nil {
			return err
		}

		printSignals(os.Stdout, res)
		return nil
	},
}

// printSignals renders the reports of a scan as a table.
func printSignals(w io.Writer, res *scheduler.ScanResult) {
	fmt.Fprintf(w, "Date: %s\n", res.Date.Format("2006-01-02"))
	if len(res.Failed) > 0 {
		fmt.Fprintf(w, "Failed symbols: %v\n", res.Failed)
	}
	if len(res.Reports) == 0 {
		fmt.Fprintln(w, "No buy signals.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 6, WidthMax: 60, WidthMaxEnforcer: text.WrapText},
	})
	t.AppendHeader(table.Row{"symbol", "strategy", "close", "rsi", "sentiment", "headline"})
	for _, r := range res.Reports {
		rsi := "n/a"
		if v, ok := r.Signal.Indicators.Get(model.FieldRSI14); ok {
			rsi = fmt.Sprintf("%.1f", v)
		}
		headline := ""
		if len(r.News) > 0 {
			headline = r.News[0].Title
		}
		t.AppendRow(table.Row{
			r.Signal.Symbol,
			r.Signal.Strategy,
			fmt.Sprintf("%.2f", r.Signal.Close),
			rsi,
			fmt.Sprintf("%s %s (%.2f)", notifier.SentimentIcon(r.Sentiment.Score), r.Sentiment.Summary, r.Sentiment.Score),
			headline,
		})
	}
	t.Render()
}

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"QuantScout/internal/metrics"
	"QuantScout/internal/notifier"
	"QuantScout/internal/scheduler"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daily scan schedule and the Telegram bot",

	// SilenceUsage is an option to silence usage when an error occurs.
	SilenceUsage: true,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logrus.Info("QuantScout starting...")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)

		sched := scheduler.NewScheduler(ctx, a.Scanner, tn)
		if err := sched.Register(cfg.Schedule.DailyCron); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()

		go tn.StartPolling(ctx, sched.HandleCommand)
		logrus.Info("telegram polling started")

		if addr := cfg.Metrics.ListenAddr; addr != "" {
			go func() {
				if err := metrics.Serve(ctx, addr); err != nil {
					logrus.WithError(err).Error("metrics server")
				}
			}()
			logrus.Infof("metrics listening on %s", addr)
		}

		if os.Getenv("RUN_ON_START") == "true" {
			logrus.Info("RUN_ON_START enabled, scanning now")
			go func() {
				if _, err := sched.RunNow(ctx, scheduler.TriggerCron); err != nil {
					logrus.WithError(err).Error("startup scan")
				}
			}()
		}

		logrus.Info("QuantScout is running. Press Ctrl+C to stop.")
		<-ctx.Done()
		logrus.Info("shutdown signal received, stopping...")
		return nil
	},
}

package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "metrics")

var ScansTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "quantscout_scans_total",
		Help: "completed scans by outcome",
	}, []string{"outcome"})

var SignalsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "quantscout_signals_total",
		Help: "signals emitted by strategy",
	}, []string{"strategy"})

var FetchFailuresTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "quantscout_fetch_failures_total",
		Help: "market data fetches that failed after retries",
	}, []string{"symbol"})

var ScanDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "quantscout_scan_duration_seconds",
		Help:    "wall time of a full scan",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

func init() {
	prometheus.MustRegister(ScansTotal, SignalsTotal, FetchFailuresTotal, ScanDuration)
}

// Handler returns the HTTP handler serving the registered metrics.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infof("metrics server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

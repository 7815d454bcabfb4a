package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"QuantScout/internal/notifier"
)

// ErrScanRunning is returned when a scan is requested while another one runs.
var ErrScanRunning = errors.New("a scan is already running")

// Scheduler runs scans on a cron schedule and on demand, and delivers the
// reports through the notifier.
type Scheduler struct {
	Cron    *cron.Cron
	Scanner *Scanner
	Sender  notifier.Sender
	Ctx     context.Context

	running atomic.Bool
	mu      sync.RWMutex
	last    *ScanResult
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, sc *Scanner, sender notifier.Sender) *Scheduler {
	return &Scheduler{
		Cron:    cron.New(cron.WithSeconds()),
		Scanner: sc,
		Sender:  sender,
		Ctx:     ctx,
	}
}

// Register registers the daily scan.
func (s *Scheduler) Register(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily scan: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info("scheduler stopped")
}

func (s *Scheduler) dailyTask() {
	if _, err := s.RunNow(s.Ctx, TriggerCron); err != nil {
		log.WithError(err).Error("daily scan")
	}
}

// Last returns the result of the most recent successful scan, or nil.
func (s *Scheduler) Last() *ScanResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// RunNow scans immediately and sends the report. Overlapping runs are
// rejected with ErrScanRunning.
func (s *Scheduler) RunNow(ctx context.Context, trigger string) (*ScanResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrScanRunning
	}
	defer s.running.Store(false)

	log.Infof("running scan (%s)", trigger)
	res, err := s.Scanner.Scan(ctx, trigger)
	if err != nil {
		s.trySend(ctx, notifier.FormatScanFailure(err))
		return res, err
	}

	s.mu.Lock()
	s.last = res
	s.mu.Unlock()

	s.trySend(ctx, reportText(res))
	return res, nil
}

func reportText(res *ScanResult) string {
	if len(res.Reports) == 0 {
		return notifier.FormatNoSignals(res.Date)
	}
	return notifier.FormatReport(res.Date, res.Reports)
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	switch notifier.NormalizeCommand(command) {
	case "/scan":
		if _, err := s.RunNow(ctx, TriggerCommand); errors.Is(err, ErrScanRunning) {
			return "⏳ A scan is already running."
		}
		// the report or failure notice has been sent by RunNow
		return ""
	case "/signals":
		last := s.Last()
		if last == nil {
			return "No scan has completed yet. Send /scan to run one."
		}
		return reportText(last)
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.Sender == nil {
		return
	}
	if err := s.Sender.SendWithRetry(ctx, text, 3); err != nil {
		log.WithError(err).Error("send notification")
	}
}

package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hurttlocker/nuggets/internal/state"
)

// DefaultInterval is how often the scheduler checks.
const DefaultInterval = time.Hour

// Sender delivers a plain-text nudge.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Report summarises one check.
type Report struct {
	DryRun     bool       `json:"dry_run"`
	CheckedAt  time.Time  `json:"checked_at"`
	Enabled    int        `json:"enabled"`
	Sent       int        `json:"sent"`
	Failed     int        `json:"failed"`
	Deliveries []Delivery `json:"deliveries"`
}

// Scheduler runs reminder checks.
type Scheduler struct {
	state    *state.Manager
	sender   Sender
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the check interval.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// NewScheduler builds a scheduler over the state manager.
func NewScheduler(mgr *state.Manager, sender Sender, logger *zap.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		state:    mgr,
		sender:   sender,
		interval: DefaultInterval,
		now:      time.Now,
		logger:   logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Check reloads state, sends due nudges and persists each success. A
// failed delivery is logged and does not stop the others. With dryRun
// nothing is sent or written.
func (s *Scheduler) Check(ctx context.Context, now time.Time, dryRun bool) (*Report, error) {
	now = now.UTC()
	if !s.state.Refresh(ctx) {
		s.logger.Debug("unsaved changes in memory, checking without reload")
	}

	snap := s.state.Reminders()
	due, updated := Due(now, snap)
	report := &Report{DryRun: dryRun, CheckedAt: now, Enabled: len(snap.LastSent), Deliveries: due}
	if dryRun || len(due) == 0 {
		return report, nil
	}

	var saveErr error
	for i := range report.Deliveries {
		d := &report.Deliveries[i]
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := s.sender.SendText(ctx, d.ChatID, d.Text); err != nil {
			d.Error = err.Error()
			report.Failed++
			s.logger.Error("sending reminder", zap.Int64("chat_id", d.ChatID), zap.Error(err))
			continue
		}
		d.Sent = true
		report.Sent++
		s.logger.Info("sent weekly reminder", zap.Int64("chat_id", d.ChatID), zap.Int("phrase_index", d.PhraseIndex))

		s.state.ApplyReminders(updated, d.ChatID)
		if err := s.state.Save(ctx); err != nil {
			saveErr = errors.Join(saveErr, fmt.Errorf("saving reminder for %d: %w", d.ChatID, err))
		}
	}
	return report, saveErr
}

// Run checks immediately and then every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("reminder scheduler started", zap.Duration("interval", s.interval))
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reminder scheduler stopped")
			return nil
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	report, err := s.Check(ctx, s.now(), false)
	if err != nil {
		s.logger.Error("reminder check", zap.Error(err))
	}
	if report != nil && len(report.Deliveries) > 0 {
		s.logger.Info("reminder check complete",
			zap.Int("due", len(report.Deliveries)),
			zap.Int("sent", report.Sent),
			zap.Int("failed", report.Failed))
	}
}

// Package scheduler runs the daily close and the nightly ledger reconcile on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/comedor/internal/config"
	"github.com/mamadbah2/comedor/internal/domain/models"
	"github.com/mamadbah2/comedor/internal/service/ledger"
	"github.com/mamadbah2/comedor/internal/service/reporting"
)

const jobTimeout = 2 * time.Minute

// DailyCloser builds and stores the closing report of a day.
type DailyCloser interface {
	DailyClose(ctx context.Context, day time.Time) (models.DailyReport, error)
}

// Reconciler repairs and re-folds the ledger.
type Reconciler interface {
	Reconcile(ctx context.Context) (ledger.ReconcileResult, error)
}

// ReportExporter mirrors a daily report somewhere outside the database.
type ReportExporter interface {
	AppendDailyReport(ctx context.Context, report models.DailyReport) error
}

// Messenger delivers text to the manager.
type Messenger interface {
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron       *cron.Cron
	cfg        config.ReportingConfig
	closer     DailyCloser
	reconciler Reconciler
	exporter   ReportExporter
	messenger  Messenger
	managerID  string
	logger     *zap.Logger
	now        func() time.Time
}

// Option plugs an optional integration into the scheduler.
type Option func(*Scheduler)

// WithExporter mirrors each daily close, e.g. to Google Sheets.
func WithExporter(e ReportExporter) Option {
	return func(s *Scheduler) { s.exporter = e }
}

// WithManagerMessages sends each daily close to the manager.
func WithManagerMessages(m Messenger, managerID string) Option {
	return func(s *Scheduler) {
		s.messenger = m
		s.managerID = managerID
	}
}

// NewScheduler creates a scheduler whose schedules are read in loc.
func NewScheduler(cfg config.ReportingConfig, loc *time.Location, closer DailyCloser, reconciler Reconciler, logger *zap.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}

	s := &Scheduler{
		cron:       cron.New(cron.WithLocation(loc)),
		cfg:        cfg,
		closer:     closer,
		reconciler: reconciler,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler",
		zap.String("daily_close", s.cfg.CronSchedule),
		zap.String("reconcile", s.cfg.ReconcileSchedule))

	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.runDailyClose); err != nil {
		return fmt.Errorf("schedule daily close %q: %w", s.cfg.CronSchedule, err)
	}
	if _, err := s.cron.AddFunc(s.cfg.ReconcileSchedule, s.runReconcile); err != nil {
		return fmt.Errorf("schedule ledger reconcile %q: %w", s.cfg.ReconcileSchedule, err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runDailyClose() {
	s.logger.Info("running daily close")
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	report, err := s.closer.DailyClose(ctx, s.now())
	if err != nil {
		s.logger.Error("failed to build daily close", zap.Error(err))
		return
	}

	if s.exporter != nil {
		if err := s.exporter.AppendDailyReport(ctx, report); err != nil {
			s.logger.Error("failed to export daily close", zap.Error(err))
		}
	}

	if s.messenger != nil && s.managerID != "" {
		req := models.OutboundMessageRequest{
			To:      s.managerID,
			Message: reporting.FormatDailyReport(report),
		}
		if err := s.messenger.SendOutbound(ctx, req); err != nil {
			s.logger.Error("failed to send daily close", zap.Error(err))
		} else {
			s.logger.Info("daily close sent to manager")
		}
	}
}

func (s *Scheduler) runReconcile() {
	s.logger.Info("running ledger reconcile")
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	result, err := s.reconciler.Reconcile(ctx)
	if err != nil {
		s.logger.Error("ledger reconcile failed", zap.Error(err))
		return
	}

	s.logger.Info("ledger reconciled",
		zap.Int("entries", result.Entries),
		zap.Int("repaired_sales", len(result.RepairedSales)),
		zap.Int("repaired_movements", len(result.RepairedMovements)),
		zap.String("capital", result.After.Capital.StringFixed(2)),
		zap.String("profit", result.After.Profit.StringFixed(2)))
}

package cron

import (
	"context"
	"log/slog"
	"time"
)

// SessionSweeper closes idle report sessions.
type SessionSweeper interface {
	SweepIdle(ctx context.Context) (int, error)
}

// ExportPurger deletes stored export artifacts past their retention.
type ExportPurger interface {
	PurgeExports(ctx context.Context, maxAge time.Duration) (int, error)
}

type ReportJobs struct {
	sessions        SessionSweeper
	exports         ExportPurger
	sweepInterval   time.Duration
	exportRetention time.Duration
}

func NewReportJobs(sessions SessionSweeper, exports ExportPurger, sweepInterval, exportRetention time.Duration) *ReportJobs {
	return &ReportJobs{
		sessions:        sessions,
		exports:         exports,
		sweepInterval:   sweepInterval,
		exportRetention: exportRetention,
	}
}

func (j *ReportJobs) RegisterJobs(scheduler *Scheduler) error {
	if err := scheduler.AddJob("sweep_idle_report_sessions", j.sweepInterval, j.SweepIdleSessions); err != nil {
		return err
	}
	if j.exportRetention > 0 {
		return scheduler.AddJob("purge_expired_exports", time.Hour, j.PurgeExpiredExports)
	}
	return nil
}

func (j *ReportJobs) SweepIdleSessions(ctx context.Context) error {
	closed, err := j.sessions.SweepIdle(ctx)
	if closed > 0 {
		slog.Info("Cron: closed idle report sessions", "count", closed)
	}
	return err
}

func (j *ReportJobs) PurgeExpiredExports(ctx context.Context) error {
	removed, err := j.exports.PurgeExports(ctx, j.exportRetention)
	if removed > 0 {
		slog.Info("Cron: purged expired exports", "count", removed, "retention", j.exportRetention)
	}
	return err
}

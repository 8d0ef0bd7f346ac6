package audit

import (
	"context"
	"log/slog"
	"time"
)

// RetentionWorker periodically invokes Service.DeleteOldLogs, the Go
// equivalent of a scheduled cleanup job the original left to an external
// cron-like caller (audit_service.py documents delete_old_logs() as
// callable "z.B. via Scheduler", without implementing the schedule
// itself).
type RetentionWorker struct {
	service  *Service
	interval time.Duration
	logger   *slog.Logger
}

// NewRetentionWorker returns a worker that runs a global retention sweep
// every interval.
func NewRetentionWorker(service *Service, interval time.Duration, logger *slog.Logger) *RetentionWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &RetentionWorker{service: service, interval: interval, logger: logger}
}

// Run blocks, sweeping every interval until ctx is canceled.
func (w *RetentionWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *RetentionWorker) sweep() {
	deleted, err := w.service.DeleteOldLogs("", nil)
	if err != nil {
		w.logger.Error("retention sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		w.logger.Info("retention sweep deleted old logs", "count", deleted)
	}
}

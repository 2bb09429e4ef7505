package server

import (
	"context"
	"time"

	"go.uber.org/zap"

	"filestore/internal/store"
)

// ReconcileJobConfig controls the background index reconciliation.
type ReconcileJobConfig struct {
	// OnStart runs one pass before the first tick.
	OnStart bool
	// Interval between passes; 0 disables the periodic job.
	Interval time.Duration
}

// reconcile rebuilds the index and publishes what was repaired.
func (cfg Config) reconcile(ctx context.Context) (store.ReconcileReport, error) {
	start := time.Now()
	report, err := cfg.Store.Reconcile()
	if err != nil {
		return report, err
	}
	cfg.Metrics.RecordReconcile(len(report.Fixed))
	cfg.Logger.Info("reconcile complete",
		zap.Int("files", report.Files), zap.Int("checksums", report.Checksums),
		zap.Int("fixed", len(report.Fixed)), zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	if len(report.Fixed) > 0 {
		cfg.publish(ctx, Event{
			Kind:    EventReconcile,
			Details: map[string]any{"files": report.Files, "fixed": report.Fixed},
		})
	}
	return report, nil
}

// RunReconcileJob reconciles according to job until ctx is cancelled. It
// returns immediately when neither OnStart nor Interval is set.
func (s *Server) RunReconcileJob(ctx context.Context, job ReconcileJobConfig) {
	log := s.cfg.Logger.With(zap.String("service", "reconcile"))
	if !job.OnStart && job.Interval <= 0 {
		log.Debug("disabled")
		return
	}

	run := func() {
		if _, err := s.cfg.reconcile(ctx); err != nil {
			log.Error("reconcile failed", zap.Error(err))
		}
	}
	if job.OnStart {
		run()
	}
	if job.Interval <= 0 {
		return
	}

	log.Info("starting", zap.Duration("interval", job.Interval))
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return
		case <-ticker.C:
			run()
		}
	}
}

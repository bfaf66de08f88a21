package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/homelistingai/leadflow/internal/clock"
	"github.com/homelistingai/leadflow/internal/usecase"
)

const defaultTickInterval = time.Minute

// Advancer is the slice of the lifecycle controller the scheduler drives.
type Advancer interface {
	Tenants() []string
	AdvanceFollowUps(ctx context.Context, tenant string) (usecase.AdvanceReport, error)
}

// FollowUpScheduler periodically advances the follow-ups of every loaded tenant.
type FollowUpScheduler struct {
	advancer     Advancer
	clock        clock.Clock
	tickInterval time.Duration
	log          logrus.FieldLogger
}

func NewFollowUpScheduler(advancer Advancer, clk clock.Clock, interval time.Duration, log logrus.FieldLogger) *FollowUpScheduler {
	if interval <= 0 {
		interval = defaultTickInterval
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &FollowUpScheduler{
		advancer:     advancer,
		clock:        clk,
		tickInterval: interval,
		log:          log.WithField("component", "followup_scheduler"),
	}
}

// Start blocks until ctx is cancelled. One pass runs immediately.
func (w *FollowUpScheduler) Start(ctx context.Context) {
	w.log.WithField("interval", w.tickInterval.String()).Info("🕒 Follow-up scheduler started")

	ticker := w.clock.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("⚠️ Follow-up scheduler stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce advances every tenant once and returns the per-tenant reports.
func (w *FollowUpScheduler) RunOnce(ctx context.Context) []usecase.AdvanceReport {
	tenants := w.advancer.Tenants()
	reports := make([]usecase.AdvanceReport, 0, len(tenants))
	for _, tenant := range tenants {
		if ctx.Err() != nil {
			break
		}
		report, err := w.advancer.AdvanceFollowUps(ctx, tenant)
		if err != nil {
			w.log.WithError(err).WithField("tenant", tenant).Error("❌ Follow-up pass not fully persisted")
		}
		if report.Advanced+report.Completed > 0 {
			w.log.WithFields(logrus.Fields{
				"tenant":    tenant,
				"advanced":  report.Advanced,
				"completed": report.Completed,
				"skipped":   report.Skipped,
			}).Info("✅ Follow-ups advanced")
		}
		reports = append(reports, report)
	}
	return reports
}

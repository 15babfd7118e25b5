// internal/lifecycle/synchronizer.go
package lifecycle

import (
	"context"
	"time"

	"carelink-workers/internal/common/logger"
	"carelink-workers/internal/common/metrics"
	"carelink-workers/internal/common/observability"
	"carelink-workers/internal/models"
	"carelink-workers/internal/subscription"
)

// Synchronizer applies the active -> expired transition. It is the only
// caller of the repository's status writer; the status-filtered query makes
// re-runs and overlapping runs converge on the same end state.
type Synchronizer struct {
	config *Config
	repo   *subscription.Repository
	obs    *observability.Observability
	logger logger.Logger
}

func NewSynchronizer(config *Config, repo *subscription.Repository, obs *observability.Observability, log logger.Logger) *Synchronizer {
	return &Synchronizer{
		config: config,
		repo:   repo,
		obs:    obs,
		logger: log.WithFields(map[string]interface{}{"operation": "sweep-expired"}),
	}
}

// SweepExpired finds active subscriptions past their end date and expires
// them, propagating the transition to all three copies of each record in one
// atomic batch. Returns the number of subscriptions transitioned. An empty
// match set is a normal outcome. On commit failure nothing is applied and
// the next scheduled run retries the whole sweep.
func (s *Synchronizer) SweepExpired(ctx context.Context) (int, error) {
	started := time.Now()
	defer func() {
		metrics.LifecycleRunDuration.WithLabelValues("sweep").Observe(time.Since(started).Seconds())
		if s.obs != nil {
			s.obs.RecordRunDuration(ctx, "sweep", time.Since(started))
		}
	}()

	now := s.config.now()

	subs, err := s.repo.FindExpired(ctx, now)
	if err != nil {
		s.recordRun(ctx, "error")
		return 0, err
	}

	eligible := make([]models.Subscription, 0, len(subs))
	for _, sub := range subs {
		if sub.PatientID == "" || sub.DoctorID == "" {
			// Expiring only the canonical copy would break cross-copy
			// consistency. Leave the record untouched; it is re-reported
			// every sweep until repaired.
			s.logger.Error("subscription missing foreign ids, skipping expiry", map[string]interface{}{
				"subscriptionId": sub.ID,
				"patientId":      sub.PatientID,
				"doctorId":       sub.DoctorID,
			})
			metrics.IntegrityErrors.Inc()
			continue
		}
		eligible = append(eligible, sub)
	}

	if len(eligible) == 0 {
		s.logger.Info("no subscriptions to expire", nil)
		s.recordRun(ctx, "ok")
		return 0, nil
	}

	if err := s.repo.TransitionStatus(ctx, eligible, models.StatusExpired); err != nil {
		s.recordRun(ctx, "error")
		return 0, err
	}

	metrics.SubscriptionsExpired.Add(float64(len(eligible)))
	s.logger.Info("expired subscriptions", map[string]interface{}{"count": len(eligible)})
	s.recordRun(ctx, "ok")
	return len(eligible), nil
}

func (s *Synchronizer) recordRun(ctx context.Context, status string) {
	if s.obs != nil {
		s.obs.RecordRun(ctx, "sweep", status)
	}
}

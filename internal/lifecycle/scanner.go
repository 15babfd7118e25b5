// internal/lifecycle/scanner.go
package lifecycle

import (
	"context"
	"fmt"
	"math"
	"time"

	"carelink-workers/internal/common/logger"
	"carelink-workers/internal/common/metrics"
	"carelink-workers/internal/common/observability"
	"carelink-workers/internal/notify"
	"carelink-workers/internal/subscription"
)

// Scanner produces "expiring soon" warnings. It never writes, so it may run
// more often than the sweep; repeated warnings across runs are acceptable.
type Scanner struct {
	config     *Config
	repo       *subscription.Repository
	dispatcher notify.IntentDispatcher
	obs        *observability.Observability
	logger     logger.Logger
}

func NewScanner(config *Config, repo *subscription.Repository, dispatcher notify.IntentDispatcher, obs *observability.Observability, log logger.Logger) *Scanner {
	return &Scanner{
		config:     config,
		repo:       repo,
		dispatcher: dispatcher,
		obs:        obs,
		logger:     log.WithFields(map[string]interface{}{"operation": "scan-expiring"}),
	}
}

// ScanExpiringSoon warns the patient and the doctor of every active
// subscription ending within the configured horizon. Already-expired records
// are excluded; they belong to the sweep. Records without a parseable end
// date are skipped.
func (s *Scanner) ScanExpiringSoon(ctx context.Context) error {
	started := time.Now()
	defer func() {
		metrics.LifecycleRunDuration.WithLabelValues("scan").Observe(time.Since(started).Seconds())
		if s.obs != nil {
			s.obs.RecordRunDuration(ctx, "scan", time.Since(started))
		}
	}()

	now := s.config.now()
	deadline := now.Add(s.config.horizon())

	// Full scan of active records: the window needs a lower bound of now as
	// well, which the single-field range filter cannot express.
	subs, err := s.repo.FindActive(ctx)
	if err != nil {
		if s.obs != nil {
			s.obs.RecordRun(ctx, "scan", "error")
		}
		return err
	}

	var intents []notify.Intent
	for _, sub := range subs {
		endsAt, ok := sub.EndsAt()
		if !ok {
			s.logger.Debug("no parseable end date, skipping", map[string]interface{}{
				"subscriptionId": sub.ID,
			})
			continue
		}
		if endsAt.Before(now) || endsAt.After(deadline) {
			continue
		}

		daysLeft := int(math.Ceil(endsAt.Sub(now).Hours() / 24))
		if daysLeft < 0 {
			daysLeft = 0
		}

		intents = append(intents,
			notify.Intent{
				UserID: sub.PatientID,
				Title:  "Subscription expiring soon",
				Body:   fmt.Sprintf("Your subscription expires in %d day(s).", daysLeft),
				Data: map[string]string{
					notify.DataKeyType:           notify.EventSubscriptionExpiring,
					notify.DataKeySubscriptionID: sub.ID,
				},
				Email: true,
			},
			notify.Intent{
				UserID: sub.DoctorID,
				Title:  "Patient subscription expiring soon",
				Body:   fmt.Sprintf("A patient's subscription expires in %d day(s).", daysLeft),
				Data: map[string]string{
					notify.DataKeyType:           notify.EventSubscriptionExpiring,
					notify.DataKeySubscriptionID: sub.ID,
					notify.DataKeyPatientID:      sub.PatientID,
				},
				Email: true,
			},
		)
	}

	s.dispatcher.Dispatch(ctx, intents)

	s.logger.Info("expiry warning scan complete", map[string]interface{}{
		"active":  len(subs),
		"intents": len(intents),
	})
	if s.obs != nil {
		s.obs.RecordRun(ctx, "scan", "ok")
	}
	return nil
}

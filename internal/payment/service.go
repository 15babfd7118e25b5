// Package payment is the mock payment collaborator. It is the only component
// that surfaces synchronous validation errors to a caller.
package payment

import (
	"context"
	"time"

	cerrors "carelink-workers/internal/common/errors"
	"carelink-workers/internal/common/logger"
	"carelink-workers/internal/models"
	"carelink-workers/internal/subscription"

	"github.com/google/uuid"
)

// Receipt is the outcome of a payment call.
type Receipt struct {
	SubscriptionID string `json:"subscriptionId"`
	Reference      string `json:"reference"`
	PaidAt         string `json:"paidAt"`
	AlreadyPaid    bool   `json:"alreadyPaid"`
}

type Service struct {
	repo   *subscription.Repository
	logger logger.Logger
	// Clock overrides the paid-at time source; nil means time.Now.
	Clock func() time.Time
}

func NewService(repo *subscription.Repository, log logger.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: log.WithFields(map[string]interface{}{"component": "payment"}),
	}
}

// Pay marks a subscription paid. Idempotent: a subscription that is already
// paid yields an AlreadyPaid receipt with the original reference and no
// mutation. An empty id is an invalid-argument error; an unknown id is
// not-found.
func (s *Service) Pay(ctx context.Context, subscriptionID string) (*Receipt, error) {
	if subscriptionID == "" {
		return nil, cerrors.E(cerrors.KindInvalidArgument, cerrors.ErrCodePaymentInvalidArgument,
			"subscription id is required")
	}

	sub, err := s.repo.Get(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, cerrors.E(cerrors.KindNotFound, cerrors.ErrCodeSubscriptionNotFound,
			"subscription "+subscriptionID+" does not exist")
	}

	if sub.PaymentStatus == models.PaymentPaid {
		return &Receipt{
			SubscriptionID: subscriptionID,
			Reference:      sub.PaymentReference,
			PaidAt:         sub.PaidAt,
			AlreadyPaid:    true,
		}, nil
	}

	reference := uuid.New().String()
	paidAt := s.now().UTC().Format(time.RFC3339)

	if err := s.repo.MarkPaid(ctx, subscriptionID, reference, paidAt); err != nil {
		return nil, err
	}

	s.logger.Info("subscription paid", map[string]interface{}{
		"subscriptionId": subscriptionID,
		"reference":      reference,
	})

	return &Receipt{
		SubscriptionID: subscriptionID,
		Reference:      reference,
		PaidAt:         paidAt,
	}, nil
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

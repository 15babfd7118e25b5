// Package subscription owns the denormalized subscription records. The
// repository is the only writer of the status field; it always updates the
// canonical record and both copies in one atomic batch.
package subscription

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	cerrors "carelink-workers/internal/common/errors"
	"carelink-workers/internal/models"
	"carelink-workers/internal/store"
)

const collectionSubscriptions = "subscriptions"

// CanonicalPath addresses the canonical subscription record.
func CanonicalPath(id string) string {
	return "subscriptions/" + id
}

// PatientCopyPath addresses the copy under the patient.
func PatientCopyPath(patientID, id string) string {
	return "patients/" + patientID + "/subscriptions/" + id
}

// DoctorCopyPath addresses the copy under the doctor, keyed by patient.
func DoctorCopyPath(doctorID, patientID string) string {
	return "doctors/" + doctorID + "/patients/" + patientID
}

type Repository struct {
	store store.Store
}

func NewRepository(st store.Store) *Repository {
	return &Repository{store: st}
}

// FindExpired returns active subscriptions whose end date has passed.
func (r *Repository) FindExpired(ctx context.Context, now time.Time) ([]models.Subscription, error) {
	return r.query(ctx, []store.Filter{
		{Field: "status", Op: store.OpEq, Value: string(models.StatusActive)},
		{Field: "endDate", Op: store.OpLte, Value: now},
	})
}

// FindActive returns every active subscription. The expiry-warning scan needs
// the full set because its window has a lower bound as well.
func (r *Repository) FindActive(ctx context.Context) ([]models.Subscription, error) {
	return r.query(ctx, []store.Filter{
		{Field: "status", Op: store.OpEq, Value: string(models.StatusActive)},
	})
}

// FindActiveByPatient returns up to limit active subscriptions for a patient.
func (r *Repository) FindActiveByPatient(ctx context.Context, patientID string, limit int) ([]models.Subscription, error) {
	subs, err := r.query(ctx, []store.Filter{
		{Field: "status", Op: store.OpEq, Value: string(models.StatusActive)},
		{Field: "patientId", Op: store.OpEq, Value: patientID},
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(subs) > limit {
		subs = subs[:limit]
	}
	return subs, nil
}

// Get returns the canonical subscription, or (nil, nil) when absent.
func (r *Repository) Get(ctx context.Context, id string) (*models.Subscription, error) {
	rec, err := r.store.Get(ctx, CanonicalPath(id))
	if err != nil || rec == nil {
		return nil, err
	}
	sub, err := decode(*rec)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// TransitionStatus applies a status change to every given subscription,
// writing the canonical record and both denormalized copies for each. All
// writes across the whole set commit as one atomic batch; on failure nothing
// is applied and the caller retries on its next tick.
func (r *Repository) TransitionStatus(ctx context.Context, subs []models.Subscription, status models.SubscriptionStatus) error {
	if len(subs) == 0 {
		return nil
	}

	writes := make([]store.Write, 0, len(subs)*3)
	for _, sub := range subs {
		if sub.PatientID == "" || sub.DoctorID == "" {
			return cerrors.E(cerrors.KindIntegrity, cerrors.ErrCodeSubscriptionIntegrity,
				"subscription "+sub.ID+" is missing patientId or doctorId")
		}
		update := map[string]interface{}{"status": string(status)}
		writes = append(writes,
			store.Write{Path: CanonicalPath(sub.ID), Fields: update},
			store.Write{Path: PatientCopyPath(sub.PatientID, sub.ID), Fields: update},
			store.Write{Path: DoctorCopyPath(sub.DoctorID, sub.PatientID), Fields: update},
		)
	}

	if err := r.store.BatchWrite(ctx, writes); err != nil {
		return cerrors.Wrap(cerrors.KindUnavailable, cerrors.ErrCodeSweepCommitFailed, "commit status transition", err)
	}
	return nil
}

// MarkPaid records payment on the canonical record only; payment fields are
// not part of the cross-copy status invariant.
func (r *Repository) MarkPaid(ctx context.Context, id, reference, paidAt string) error {
	return r.store.BatchWrite(ctx, []store.Write{{
		Path: CanonicalPath(id),
		Fields: map[string]interface{}{
			"paymentStatus":    string(models.PaymentPaid),
			"paymentReference": reference,
			"paidAt":           paidAt,
		},
	}})
}

func (r *Repository) query(ctx context.Context, filters []store.Filter) ([]models.Subscription, error) {
	records, err := r.store.Query(ctx, collectionSubscriptions, filters)
	if err != nil {
		return nil, err
	}

	subs := make([]models.Subscription, 0, len(records))
	for _, rec := range records {
		sub, err := decode(rec)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func decode(rec store.Record) (models.Subscription, error) {
	var sub models.Subscription

	data, err := json.Marshal(rec.Fields)
	if err != nil {
		return sub, cerrors.Wrap(cerrors.KindInternal, cerrors.ErrCodeStoreQueryFailed, "encode "+rec.Path, err)
	}
	if err := json.Unmarshal(data, &sub); err != nil {
		return sub, cerrors.Wrap(cerrors.KindInternal, cerrors.ErrCodeStoreQueryFailed, "decode "+rec.Path, err)
	}

	if sub.ID == "" {
		if idx := strings.LastIndex(rec.Path, "/"); idx >= 0 {
			sub.ID = rec.Path[idx+1:]
		}
	}
	return sub, nil
}

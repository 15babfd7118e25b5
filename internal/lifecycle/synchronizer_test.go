// internal/lifecycle/synchronizer_test.go
package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "carelink-workers/internal/common/errors"
	"carelink-workers/internal/common/logger"
	"carelink-workers/internal/models"
	"carelink-workers/internal/store"
	"carelink-workers/internal/subscription"
)

// failingStore delegates reads but refuses every batch, simulating a store
// outage between query and commit.
type failingStore struct {
	store.Store
}

func (f *failingStore) BatchWrite(context.Context, []store.Write) error {
	return errors.New("store unavailable")
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func seedSubscription(t *testing.T, st store.Store, id, patientID, doctorID string, status models.SubscriptionStatus, endDate string) {
	t.Helper()
	fields := map[string]interface{}{
		"id":        id,
		"patientId": patientID,
		"doctorId":  doctorID,
		"status":    string(status),
	}
	if endDate != "" {
		fields["endDate"] = endDate
	}
	writes := []store.Write{{Path: subscription.CanonicalPath(id), Fields: fields}}
	if patientID != "" {
		writes = append(writes, store.Write{Path: subscription.PatientCopyPath(patientID, id), Fields: fields})
	}
	if patientID != "" && doctorID != "" {
		writes = append(writes, store.Write{Path: subscription.DoctorCopyPath(doctorID, patientID), Fields: fields})
	}
	require.NoError(t, st.BatchWrite(context.Background(), writes))
}

func newSynchronizer(t *testing.T, st store.Store, now time.Time) *Synchronizer {
	t.Helper()
	cfg := &Config{WarningHorizonDays: 3, Clock: fixedClock(now)}
	return NewSynchronizer(cfg, subscription.NewRepository(st), nil, logger.NewTestLogger(t))
}

func TestSynchronizer_SweepExpiresAllCopies(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	seedSubscription(t, st, "past", "p1", "d1", models.StatusActive, "2026-08-01T00:00:00Z")
	seedSubscription(t, st, "future", "p2", "d1", models.StatusActive, "2026-12-01T00:00:00Z")

	count, err := newSynchronizer(t, st, now).SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	for _, path := range []string{
		subscription.CanonicalPath("past"),
		subscription.PatientCopyPath("p1", "past"),
		subscription.DoctorCopyPath("d1", "p1"),
	} {
		rec, err := st.Get(ctx, path)
		require.NoError(t, err)
		require.NotNil(t, rec, path)
		assert.Equal(t, "expired", rec.Fields["status"], path)
	}

	rec, err := st.Get(ctx, subscription.CanonicalPath("future"))
	require.NoError(t, err)
	assert.Equal(t, "active", rec.Fields["status"])
}

func TestSynchronizer_SweepIsIdempotent(t *testing.T) {
	st := store.NewMemoryStore()
	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	seedSubscription(t, st, "past", "p1", "d1", models.StatusActive, "2026-08-01T00:00:00Z")

	sync := newSynchronizer(t, st, now)

	count, err := sync.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = sync.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count, "second run must find nothing to do")
}

func TestSynchronizer_SweepEmptyMatchIsNormal(t *testing.T) {
	st := store.NewMemoryStore()
	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	count, err := newSynchronizer(t, st, now).SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSynchronizer_SweepSkipsRecordsMissingForeignIDs(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	seedSubscription(t, st, "broken", "p1", "", models.StatusActive, "2026-08-01T00:00:00Z")
	seedSubscription(t, st, "healthy", "p2", "d1", models.StatusActive, "2026-08-01T00:00:00Z")

	count, err := newSynchronizer(t, st, now).SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The broken record is left untouched, canonical copy included.
	rec, err := st.Get(ctx, subscription.CanonicalPath("broken"))
	require.NoError(t, err)
	assert.Equal(t, "active", rec.Fields["status"])

	rec, err = st.Get(ctx, subscription.CanonicalPath("healthy"))
	require.NoError(t, err)
	assert.Equal(t, "expired", rec.Fields["status"])
}

func TestSynchronizer_SweepCommitFailureAppliesNothing(t *testing.T) {
	inner := store.NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	seedSubscription(t, inner, "past", "p1", "d1", models.StatusActive, "2026-08-01T00:00:00Z")

	count, err := newSynchronizer(t, &failingStore{Store: inner}, now).SweepExpired(ctx)
	require.Error(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, cerrors.ErrCodeSweepCommitFailed, cerrors.CodeOf(err))

	rec, err := inner.Get(ctx, subscription.CanonicalPath("past"))
	require.NoError(t, err)
	assert.Equal(t, "active", rec.Fields["status"], "failed sweep must leave the record for the next run")
}

func TestSynchronizer_SweepBoundaryEndDateExpires(t *testing.T) {
	st := store.NewMemoryStore()
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	// endDate exactly equal to now is past due.
	seedSubscription(t, st, "exact", "p1", "d1", models.StatusActive, "2026-08-31T12:00:00Z")

	count, err := newSynchronizer(t, st, now).SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

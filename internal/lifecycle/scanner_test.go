// internal/lifecycle/scanner_test.go
package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carelink-workers/internal/common/logger"
	"carelink-workers/internal/models"
	"carelink-workers/internal/notify"
	"carelink-workers/internal/store"
	"carelink-workers/internal/subscription"
)

// captureDispatcher records dispatched intents instead of delivering them.
type captureDispatcher struct {
	intents []notify.Intent
}

func (c *captureDispatcher) Dispatch(_ context.Context, intents []notify.Intent) {
	c.intents = append(c.intents, intents...)
}

func newScanner(t *testing.T, st store.Store, now time.Time, horizonDays int) (*Scanner, *captureDispatcher) {
	t.Helper()
	cfg := &Config{WarningHorizonDays: horizonDays, Clock: fixedClock(now)}
	dispatcher := &captureDispatcher{}
	return NewScanner(cfg, subscription.NewRepository(st), dispatcher, nil, logger.NewTestLogger(t)), dispatcher
}

func endDateIn(now time.Time, d time.Duration) string {
	return now.Add(d).UTC().Format(time.RFC3339)
}

func TestScanner_WarnsWithinHorizonOnly(t *testing.T) {
	st := store.NewMemoryStore()
	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	seedSubscription(t, st, "soon", "p1", "d1", models.StatusActive, endDateIn(now, 2*24*time.Hour))
	seedSubscription(t, st, "later", "p2", "d1", models.StatusActive, endDateIn(now, 4*24*time.Hour))
	seedSubscription(t, st, "overdue", "p3", "d2", models.StatusActive, endDateIn(now, -24*time.Hour))
	seedSubscription(t, st, "gone", "p4", "d2", models.StatusExpired, endDateIn(now, 24*time.Hour))

	scanner, dispatcher := newScanner(t, st, now, 3)
	require.NoError(t, scanner.ScanExpiringSoon(context.Background()))

	// One patient intent and one doctor intent, for "soon" only.
	require.Len(t, dispatcher.intents, 2)

	byUser := map[string]notify.Intent{}
	for _, intent := range dispatcher.intents {
		assert.Equal(t, "soon", intent.Data[notify.DataKeySubscriptionID])
		assert.Equal(t, notify.EventSubscriptionExpiring, intent.Data[notify.DataKeyType])
		byUser[intent.UserID] = intent
	}

	patient, ok := byUser["p1"]
	require.True(t, ok, "patient must be warned")
	assert.Contains(t, patient.Body, "2 day(s)")
	assert.True(t, patient.Email)

	doctor, ok := byUser["d1"]
	require.True(t, ok, "doctor must be warned")
	assert.Equal(t, "p1", doctor.Data[notify.DataKeyPatientID])
}

func TestScanner_SkipsUnparseableEndDate(t *testing.T) {
	st := store.NewMemoryStore()
	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	seedSubscription(t, st, "no-date", "p1", "d1", models.StatusActive, "")
	seedSubscription(t, st, "bad-date", "p2", "d1", models.StatusActive, "next tuesday")

	scanner, dispatcher := newScanner(t, st, now, 3)
	require.NoError(t, scanner.ScanExpiringSoon(context.Background()))
	assert.Empty(t, dispatcher.intents)
}

func TestScanner_HorizonBoundary(t *testing.T) {
	st := store.NewMemoryStore()
	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	// Exactly at the horizon edge is still inside the window.
	seedSubscription(t, st, "edge", "p1", "d1", models.StatusActive, endDateIn(now, 3*24*time.Hour))

	scanner, dispatcher := newScanner(t, st, now, 3)
	require.NoError(t, scanner.ScanExpiringSoon(context.Background()))
	require.Len(t, dispatcher.intents, 2)
	assert.Contains(t, dispatcher.intents[0].Body, "3 day(s)")
}

func TestScanner_RepeatedRunsWarnAgain(t *testing.T) {
	st := store.NewMemoryStore()
	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	seedSubscription(t, st, "soon", "p1", "d1", models.StatusActive, endDateIn(now, 24*time.Hour))

	scanner, dispatcher := newScanner(t, st, now, 3)
	require.NoError(t, scanner.ScanExpiringSoon(context.Background()))
	require.NoError(t, scanner.ScanExpiringSoon(context.Background()))
	assert.Len(t, dispatcher.intents, 4, "scan keeps no state between runs")
}

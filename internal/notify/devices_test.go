// internal/notify/devices_test.go
package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carelink-workers/internal/common/logger"
	"carelink-workers/internal/store"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestDeviceDirectory_ResolvesAndDedupes(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.BatchWrite(ctx, []store.Write{
		{Path: "users/u1/devices/dev-1", Fields: map[string]interface{}{"token": "arn-1"}},
		{Path: "users/u1/devices/dev-2", Fields: map[string]interface{}{"token": "arn-2"}},
		{Path: "users/u1/devices/dev-3", Fields: map[string]interface{}{"token": "arn-1"}},
	}))

	d := NewDeviceDirectory(st, nil, 0, logger.NewTestLogger(t))
	tokens := d.ResolveDevices(ctx, "u1")
	assert.ElementsMatch(t, []string{"arn-1", "arn-2"}, tokens)
}

func TestDeviceDirectory_DeviceIDFallback(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.BatchWrite(ctx, []store.Write{
		{Path: "users/u1/devices/dev-1", Fields: map[string]interface{}{"platform": "android"}},
	}))

	d := NewDeviceDirectory(st, nil, 0, logger.NewTestLogger(t))
	tokens := d.ResolveDevices(ctx, "u1")
	assert.Equal(t, []string{"dev-1"}, tokens, "device id stands in for a missing token field")
}

func TestDeviceDirectory_CachesResolution(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.BatchWrite(ctx, []store.Write{
		{Path: "users/u1/devices/dev-1", Fields: map[string]interface{}{"token": "arn-1"}},
	}))
	rdb := newTestRedis(t)

	d := NewDeviceDirectory(st, rdb, 5*time.Minute, logger.NewTestLogger(t))

	tokens := d.ResolveDevices(ctx, "u1")
	assert.Equal(t, []string{"arn-1"}, tokens)

	// The cached set is served even after the store changes.
	require.NoError(t, st.BatchWrite(ctx, []store.Write{
		{Path: "users/u1/devices/dev-2", Fields: map[string]interface{}{"token": "arn-2"}},
	}))
	tokens = d.ResolveDevices(ctx, "u1")
	assert.Equal(t, []string{"arn-1"}, tokens)
}

func TestDeviceDirectory_EmptySetNotCached(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	rdb := newTestRedis(t)

	d := NewDeviceDirectory(st, rdb, 5*time.Minute, logger.NewTestLogger(t))

	assert.Empty(t, d.ResolveDevices(ctx, "u1"))

	// A device registered after the miss is picked up on the next call.
	require.NoError(t, st.BatchWrite(ctx, []store.Write{
		{Path: "users/u1/devices/dev-1", Fields: map[string]interface{}{"token": "arn-1"}},
	}))
	assert.Equal(t, []string{"arn-1"}, d.ResolveDevices(ctx, "u1"))
}

func TestUserDirectory_Email(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.BatchWrite(ctx, []store.Write{
		{Path: "users/u1", Fields: map[string]interface{}{"email": "u1@example.com"}},
		{Path: "users/u2", Fields: map[string]interface{}{"name": "No Address"}},
	}))

	u := NewUserDirectory(st)
	assert.Equal(t, "u1@example.com", u.Email(ctx, "u1"))
	assert.Equal(t, "", u.Email(ctx, "u2"))
	assert.Equal(t, "", u.Email(ctx, "missing"))
}

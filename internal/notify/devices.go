// internal/notify/devices.go
package notify

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"carelink-workers/internal/common/logger"
	"carelink-workers/internal/store"

	"github.com/redis/go-redis/v9"
)

// DeviceDirectory resolves a user id to the set of delivery tokens, with a
// short-lived Redis cache in front of the store. Resolution is best-effort:
// it returns an empty set on any failure, never an error.
type DeviceDirectory struct {
	store  store.Store
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewDeviceDirectory(st store.Store, rdb *redis.Client, ttl time.Duration, log logger.Logger) *DeviceDirectory {
	return &DeviceDirectory{
		store:  st,
		redis:  rdb,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "device-directory"}),
	}
}

// ResolveDevices returns the user's delivery tokens. A device record's token
// field wins; the device id is the fallback when the field is absent.
func (d *DeviceDirectory) ResolveDevices(ctx context.Context, userID string) []string {
	cacheKey := "devices:" + userID

	if d.redis != nil {
		if val, err := d.redis.Get(ctx, cacheKey).Result(); err == nil {
			var tokens []string
			if err := json.Unmarshal([]byte(val), &tokens); err == nil {
				return tokens
			}
		}
	}

	records, err := d.store.Query(ctx, "users/"+userID+"/devices", nil)
	if err != nil {
		d.logger.Warn("device lookup failed", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
		return nil
	}

	seen := map[string]bool{}
	tokens := make([]string, 0, len(records))
	for _, rec := range records {
		token, _ := rec.Fields["token"].(string)
		if token == "" {
			if idx := strings.LastIndex(rec.Path, "/"); idx >= 0 {
				token = rec.Path[idx+1:]
			}
		}
		if token == "" || seen[token] {
			continue
		}
		seen[token] = true
		tokens = append(tokens, token)
	}

	if d.redis != nil && len(tokens) > 0 {
		data, _ := json.Marshal(tokens)
		d.redis.Set(ctx, cacheKey, data, d.ttl)
	}

	return tokens
}

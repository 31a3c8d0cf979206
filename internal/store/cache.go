package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"firewatch/internal/models"
)

const latestKeyPrefix = "reading:last:"

// LatestCache keeps each device's most recent reading in Redis so a
// dashboard can paint its current state without a range query. Entries
// expire so dead devices drop out of view.
type LatestCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLatestCache wraps an existing Redis client.
func NewLatestCache(client *redis.Client, ttl time.Duration) *LatestCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &LatestCache{client: client, ttl: ttl}
}

// Set overwrites the device's latest reading.
func (c *LatestCache) Set(ctx context.Context, r models.Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}
	return c.client.Set(ctx, latestKeyPrefix+r.DeviceID, payload, c.ttl).Err()
}

// Get returns the device's latest reading, or found=false when absent.
func (c *LatestCache) Get(ctx context.Context, deviceID string) (models.Reading, bool, error) {
	data, err := c.client.Get(ctx, latestKeyPrefix+deviceID).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Reading{}, false, nil
	}
	if err != nil {
		return models.Reading{}, false, err
	}

	var r models.Reading
	if err := json.Unmarshal(data, &r); err != nil {
		return models.Reading{}, false, fmt.Errorf("corrupt cache entry for %s: %w", deviceID, err)
	}
	return r, true, nil
}

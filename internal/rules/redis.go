package rules

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"firewatch/internal/models"
)

const ruleKeyPrefix = "rule:"

// RedisStore keeps rules as JSON values in Redis so the gateway and the
// pipeline survive restarts without losing threshold configuration.
//
// Merges are read-modify-write; a process-local mutex serializes them so a
// concurrent Get never sees a partially applied patch from this process.
type RedisStore struct {
	client *redis.Client
	mu     sync.Mutex
}

// NewRedisStore wraps an already-connected Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get returns the device's rule, creating an unbounded one on first reference.
func (s *RedisStore) Get(ctx context.Context, deviceID string) (models.AlertRule, error) {
	key := ruleKeyPrefix + deviceID

	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		rule := models.AlertRule{DeviceID: deviceID}
		payload, merr := json.Marshal(rule)
		if merr != nil {
			return models.AlertRule{}, merr
		}
		// SetNX so a concurrent Update is not overwritten.
		if err := s.client.SetNX(ctx, key, payload, 0).Err(); err != nil {
			return models.AlertRule{}, fmt.Errorf("failed to create rule entry: %w", err)
		}
		return rule, nil
	}
	if err != nil {
		return models.AlertRule{}, fmt.Errorf("failed to load rule: %w", err)
	}

	var rule models.AlertRule
	if err := json.Unmarshal(data, &rule); err != nil {
		return models.AlertRule{}, fmt.Errorf("corrupt rule entry for %s: %w", deviceID, err)
	}
	return rule, nil
}

// Update merges the supplied bounds into the stored rule.
func (s *RedisStore) Update(ctx context.Context, deviceID string, patch models.RulePatch) (models.AlertRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, err := s.Get(ctx, deviceID)
	if err != nil {
		return models.AlertRule{}, err
	}
	patch.Apply(&rule)

	payload, err := json.Marshal(rule)
	if err != nil {
		return models.AlertRule{}, err
	}
	if err := s.client.Set(ctx, ruleKeyPrefix+deviceID, payload, 0).Err(); err != nil {
		return models.AlertRule{}, fmt.Errorf("failed to store rule: %w", err)
	}
	return rule, nil
}

// Known reports whether the device has a rule entry.
func (s *RedisStore) Known(ctx context.Context, deviceID string) (bool, error) {
	n, err := s.client.Exists(ctx, ruleKeyPrefix+deviceID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rule entry: %w", err)
	}
	return n > 0, nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error { return s.client.Close() }

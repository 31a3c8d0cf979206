package rules

import (
	"context"
	"sync"

	"firewatch/internal/models"
)

// Store holds the per-device alert rules.
//
// Get never fails with "not found": referencing an unknown device creates
// its rule entry with all bounds unset. Rules are never deleted. Callers
// always receive copies; a reader can never observe a half-merged rule.
type Store interface {
	Get(ctx context.Context, deviceID string) (models.AlertRule, error)
	Update(ctx context.Context, deviceID string, patch models.RulePatch) (models.AlertRule, error)
	Known(ctx context.Context, deviceID string) (bool, error)
	Close() error
}

// MemoryStore is the in-process Store used in dev and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	rules map[string]models.AlertRule
}

// NewMemoryStore creates an empty in-memory rule store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rules: make(map[string]models.AlertRule)}
}

// Get returns the device's rule, creating an unbounded one on first reference.
func (s *MemoryStore) Get(_ context.Context, deviceID string) (models.AlertRule, error) {
	s.mu.RLock()
	rule, ok := s.rules[deviceID]
	s.mu.RUnlock()
	if ok {
		return rule, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rule, ok = s.rules[deviceID]; ok {
		return rule, nil
	}
	rule = models.AlertRule{DeviceID: deviceID}
	s.rules[deviceID] = rule
	return rule, nil
}

// Update merges the supplied bounds into the device's rule and returns the
// merged result. The entry is created if absent.
func (s *MemoryStore) Update(_ context.Context, deviceID string, patch models.RulePatch) (models.AlertRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[deviceID]
	if !ok {
		rule = models.AlertRule{DeviceID: deviceID}
	}
	patch.Apply(&rule)
	s.rules[deviceID] = rule
	return rule, nil
}

// Known reports whether the device has a rule entry.
func (s *MemoryStore) Known(_ context.Context, deviceID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rules[deviceID]
	return ok, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

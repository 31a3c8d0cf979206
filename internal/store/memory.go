package store

import (
	"context"
	"sync"
	"time"

	"firewatch/internal/models"
)

// MemoryStore keeps readings in per-device ordered slices. Used in dev and
// tests; appends arrive in receipt order per device, so a plain append
// preserves the query ordering contract.
type MemoryStore struct {
	mu       sync.RWMutex
	readings map[string][]models.Reading
}

// NewMemoryStore creates an empty in-memory reading store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{readings: make(map[string][]models.Reading)}
}

// Append stores one reading.
func (s *MemoryStore) Append(_ context.Context, r models.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings[r.DeviceID] = append(s.readings[r.DeviceID], r)
	return nil
}

// Query returns the device's readings in [start, end), downsampled when
// interval is positive.
func (s *MemoryStore) Query(_ context.Context, deviceID string, start, end time.Time, interval time.Duration) ([]models.Reading, error) {
	s.mu.RLock()
	series := s.readings[deviceID]
	result := make([]models.Reading, 0, len(series))
	for _, r := range series {
		if r.Timestamp.Before(start) || !r.Timestamp.Before(end) {
			continue
		}
		result = append(result, r)
	}
	s.mu.RUnlock()

	return Downsample(result, start, interval), nil
}

// Prune drops readings older than the cutoff.
func (s *MemoryStore) Prune(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var dropped int64
	for deviceID, series := range s.readings {
		kept := series[:0]
		for _, r := range series {
			if r.Timestamp.Before(before) {
				dropped++
				continue
			}
			kept = append(kept, r)
		}
		s.readings[deviceID] = kept
	}
	return dropped, nil
}

// Close implements ReadingStore.
func (s *MemoryStore) Close() error { return nil }

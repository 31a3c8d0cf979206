package store

import (
	"context"
	"errors"
	"time"

	"firewatch/internal/models"
)

// ErrStoreUnavailable wraps any persistence failure. The ingestion
// coordinator treats it as non-fatal: history may go stale, the live feed
// must not.
var ErrStoreUnavailable = errors.New("reading store unavailable")

// ReadingStore is the append-only persistence layer for readings.
//
// Append is the only write path. Query returns readings in receipt order
// restricted to [start, end); a positive interval downsamples the result to
// one sample per bucket (the sample nearest the bucket start, i.e. the
// first one at or after it). Prune removes readings older than the cutoff
// and returns how many were dropped.
type ReadingStore interface {
	Append(ctx context.Context, r models.Reading) error
	Query(ctx context.Context, deviceID string, start, end time.Time, interval time.Duration) ([]models.Reading, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

// Downsample reduces an ordered series to at most one reading per interval
// bucket, keeping the first sample at or after each bucket start. Buckets
// are aligned to start. A non-positive interval returns the input as-is.
func Downsample(readings []models.Reading, start time.Time, interval time.Duration) []models.Reading {
	if interval <= 0 || len(readings) == 0 {
		return readings
	}

	out := make([]models.Reading, 0, len(readings))
	lastBucket := int64(-1)
	for _, r := range readings {
		bucket := int64(r.Timestamp.Sub(start) / interval)
		if bucket == lastBucket {
			continue
		}
		lastBucket = bucket
		out = append(out, r)
	}
	return out
}

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"firewatch/internal/models"
)

// PostgresStore persists readings in a readings table keyed by
// (device_id, ts). Works unchanged against a TimescaleDB hypertable.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and verifies the connection.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres config: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres unreachable: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Append inserts one reading. NULL columns represent absent sensor fields.
func (s *PostgresStore) Append(ctx context.Context, r models.Reading) error {
	const query = `
		INSERT INTO readings (device_id, ts, temperature, humidity, flame_signal, gas_level)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.pool.Exec(ctx, query,
		r.DeviceID, r.Timestamp, r.Temperature, r.Humidity, r.FlameSignal, r.GasLevel)
	if err != nil {
		return fmt.Errorf("%w: insert failed: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Query returns the device's readings in [start, end) in receipt order,
// downsampled when interval is positive.
func (s *PostgresStore) Query(ctx context.Context, deviceID string, start, end time.Time, interval time.Duration) ([]models.Reading, error) {
	const query = `
		SELECT device_id, ts, temperature, humidity, flame_signal, gas_level
		FROM readings
		WHERE device_id = $1 AND ts >= $2 AND ts < $3
		ORDER BY ts ASC
	`
	rows, err := s.pool.Query(ctx, query, deviceID, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: query failed: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	readings := make([]models.Reading, 0, 128)
	for rows.Next() {
		var r models.Reading
		if err := rows.Scan(&r.DeviceID, &r.Timestamp, &r.Temperature, &r.Humidity, &r.FlameSignal, &r.GasLevel); err != nil {
			return nil, fmt.Errorf("%w: scan failed: %v", ErrStoreUnavailable, err)
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return Downsample(readings, start, interval), nil
}

// Prune deletes readings older than the cutoff.
func (s *PostgresStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM readings WHERE ts < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("%w: prune failed: %v", ErrStoreUnavailable, err)
	}
	return tag.RowsAffected(), nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"firewatch/internal/models"
)

// RemoteStore proxies persistence to the external time-series API
// (POST /data to append, GET /data to query). That service owns durable
// storage and its own retention policy; this client only speaks its
// read/write contract.
type RemoteStore struct {
	baseURL string
	client  *http.Client
}

// NewRemoteStore creates a client for the time-series API with a bounded
// per-call timeout.
func NewRemoteStore(baseURL string, timeout time.Duration) *RemoteStore {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RemoteStore{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Append posts one reading to the time-series API.
func (s *RemoteStore) Append(ctx context.Context, r models.Reading) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("%w: marshal failed: %v", ErrStoreUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/data", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: append rejected with status %d", ErrStoreUnavailable, resp.StatusCode)
	}
	return nil
}

// Query fetches the device's readings in [start, end) from the API. The
// interval is forwarded in whole seconds, matching the API's contract.
func (s *RemoteStore) Query(ctx context.Context, deviceID string, start, end time.Time, interval time.Duration) ([]models.Reading, error) {
	params := url.Values{}
	params.Set("device_id", deviceID)
	params.Set("start_time", start.UTC().Format(time.RFC3339))
	params.Set("end_time", end.UTC().Format(time.RFC3339))
	if interval > 0 {
		params.Set("interval", strconv.Itoa(int(interval/time.Second)))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/data?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: query rejected with status %d", ErrStoreUnavailable, resp.StatusCode)
	}

	var readings []models.Reading
	if err := json.NewDecoder(resp.Body).Decode(&readings); err != nil {
		return nil, fmt.Errorf("%w: bad response body: %v", ErrStoreUnavailable, err)
	}
	return readings, nil
}

// Prune is a no-op: the time-series API enforces its own retention.
func (s *RemoteStore) Prune(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// Close implements ReadingStore.
func (s *RemoteStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

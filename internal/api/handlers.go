package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"firewatch/internal/broadcast"
	"firewatch/internal/logger"
	"firewatch/internal/models"
	"firewatch/internal/pipeline"
	"firewatch/internal/rules"
	"firewatch/internal/store"
)

// Gateway serves historical reads and rule mutations on behalf of the
// dashboard. It is a thin façade: input validation here, semantics in the
// rule store and reading store.
type Gateway struct {
	rules       rules.Store
	readings    store.ReadingStore
	cache       *store.LatestCache // optional
	hub         *broadcast.Hub
	coordinator *pipeline.Coordinator
}

// GatewayConfig holds the gateway's collaborators.
type GatewayConfig struct {
	Rules       rules.Store
	Readings    store.ReadingStore
	LatestCache *store.LatestCache
	Hub         *broadcast.Hub
	Coordinator *pipeline.Coordinator
}

// NewGateway constructs a Gateway.
func NewGateway(cfg GatewayConfig) *Gateway {
	return &Gateway{
		rules:       cfg.Rules,
		readings:    cfg.Readings,
		cache:       cfg.LatestCache,
		hub:         cfg.Hub,
		coordinator: cfg.Coordinator,
	}
}

// Router builds the HTTP mux with middleware applied.
func (g *Gateway) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/data", g.handleData)
	mux.HandleFunc("PUT /api/alerts/{device_id}", g.handleAlertUpdate)
	mux.HandleFunc("GET /api/latest", g.handleLatest)
	mux.HandleFunc("GET /ws", g.hub.ServeWS)
	mux.HandleFunc("GET /health", g.handleHealth)
	mux.HandleFunc("GET /stats", g.handleStats)
	mux.Handle("GET /metrics", promhttp.Handler())

	return Chain(mux, Recovery, Logging)
}

// handleData serves GET /api/data?device_id=&start_time=&end_time=&interval=.
func (g *Gateway) handleData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	deviceID := q.Get("device_id")
	if deviceID == "" {
		g.writeError(w, http.StatusBadRequest, "device_id is required")
		return
	}

	start, err := time.Parse(time.RFC3339, q.Get("start_time"))
	if err != nil {
		g.writeError(w, http.StatusBadRequest, "start_time must be RFC3339")
		return
	}
	end, err := time.Parse(time.RFC3339, q.Get("end_time"))
	if err != nil {
		g.writeError(w, http.StatusBadRequest, "end_time must be RFC3339")
		return
	}
	if !end.After(start) {
		g.writeError(w, http.StatusBadRequest, "end_time must be after start_time")
		return
	}

	var interval time.Duration
	if raw := q.Get("interval"); raw != "" {
		interval, err = parseInterval(raw)
		if err != nil {
			g.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	readings, err := g.readings.Query(r.Context(), deviceID, start, end, interval)
	if err != nil {
		log := logger.WithComponent("gateway")
		log.Error().Err(err).
			Str("device_id", deviceID).Msg("reading query failed")
		g.writeError(w, http.StatusInternalServerError, "failed to query readings")
		return
	}

	g.writeJSON(w, http.StatusOK, readings)
}

// handleAlertUpdate serves PUT /api/alerts/{device_id}. The body is a
// partial rule; supplied bounds are merged, absent ones left untouched.
func (g *Gateway) handleAlertUpdate(w http.ResponseWriter, r *http.Request) {
	deviceID := r.PathValue("device_id")
	if deviceID == "" {
		g.writeError(w, http.StatusBadRequest, "device_id is required")
		return
	}

	var patch models.RulePatch
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&patch); err != nil {
		g.writeError(w, http.StatusBadRequest, "invalid rule body: bounds must be numeric")
		return
	}

	known, err := g.rules.Known(r.Context(), deviceID)
	if err != nil {
		log := logger.WithComponent("gateway")
		log.Error().Err(err).
			Str("device_id", deviceID).Msg("rule lookup failed")
		g.writeError(w, http.StatusInternalServerError, "failed to load rule")
		return
	}
	if !known {
		g.writeError(w, http.StatusNotFound, "device not found")
		return
	}

	current, err := g.rules.Get(r.Context(), deviceID)
	if err != nil {
		g.writeError(w, http.StatusInternalServerError, "failed to load rule")
		return
	}
	if err := validateMerge(current, patch); err != nil {
		g.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	merged, err := g.rules.Update(r.Context(), deviceID, patch)
	if err != nil {
		log := logger.WithComponent("gateway")
		log.Error().Err(err).
			Str("device_id", deviceID).Msg("rule update failed")
		g.writeError(w, http.StatusInternalServerError, "failed to update rule")
		return
	}

	g.writeJSON(w, http.StatusOK, merged)
}

// handleLatest serves GET /api/latest?device_id= from the latest-reading
// cache.
func (g *Gateway) handleLatest(w http.ResponseWriter, r *http.Request) {
	if g.cache == nil {
		g.writeError(w, http.StatusServiceUnavailable, "latest-reading cache not configured")
		return
	}

	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		g.writeError(w, http.StatusBadRequest, "device_id is required")
		return
	}

	reading, found, err := g.cache.Get(r.Context(), deviceID)
	if err != nil {
		log := logger.WithComponent("gateway")
		log.Error().Err(err).
			Str("device_id", deviceID).Msg("latest-reading lookup failed")
		g.writeError(w, http.StatusInternalServerError, "failed to load latest reading")
		return
	}
	if !found {
		g.writeError(w, http.StatusNotFound, "no recent reading for device")
		return
	}

	g.writeJSON(w, http.StatusOK, reading)
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, g.coordinator.Stats())
}

// parseInterval accepts a Go duration string ("30s", "5m") or a plain
// number of seconds. The interval must be positive.
func parseInterval(raw string) (time.Duration, error) {
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs <= 0 {
			return 0, errors.New("interval must be positive")
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.New("interval must be a duration or whole seconds")
	}
	if d <= 0 {
		return 0, errors.New("interval must be positive")
	}
	return d, nil
}

// validateMerge rejects patches that would leave a metric with min > max.
func validateMerge(current models.AlertRule, patch models.RulePatch) error {
	patch.Apply(&current)
	for _, metric := range models.Metrics {
		min, max := current.Bounds(metric)
		if min != nil && max != nil && *min > *max {
			return fmt.Errorf("%s bounds inverted: min %g exceeds max %g", metric, *min, *max)
		}
	}
	return nil
}

func (g *Gateway) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func (g *Gateway) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   message,
	})
}

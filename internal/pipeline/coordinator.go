package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"firewatch/internal/decode"
	"firewatch/internal/logger"
	"firewatch/internal/metrics"
	"firewatch/internal/models"
	"firewatch/internal/rules"
	"firewatch/internal/store"
)

// Outcome is the terminal state of processing one inbound message.
type Outcome int

const (
	// Delivered: decoded, persisted, and broadcast.
	Delivered Outcome = iota
	// Dropped: the message could not be decoded; nothing else ran.
	Dropped
	// PartiallyFailed: persistence failed but the broadcast still went out.
	PartiallyFailed
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Dropped:
		return "dropped"
	case PartiallyFailed:
		return "partially_failed"
	default:
		return "unknown"
	}
}

// Broadcaster is the live fan-out consumed by the coordinator.
type Broadcaster interface {
	Publish(eventType string, payload any)
}

// Coordinator runs the per-message pipeline: decode, evaluate, persist,
// broadcast. Failures in one step are isolated from the others; in
// particular a store failure never suppresses the live broadcast. The
// coordinator holds no cross-message state.
type Coordinator struct {
	rules rules.Store
	store store.ReadingStore
	hub   Broadcaster
	cache *store.LatestCache // optional

	storeTimeout time.Duration

	delivered atomic.Uint64
	partial   atomic.Uint64
	dropped   atomic.Uint64
}

// Config holds coordinator dependencies.
type Config struct {
	Rules        rules.Store
	Store        store.ReadingStore
	Broadcaster  Broadcaster
	LatestCache  *store.LatestCache
	StoreTimeout time.Duration
}

// New constructs a Coordinator.
func New(cfg Config) *Coordinator {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	return &Coordinator{
		rules:        cfg.Rules,
		store:        cfg.Store,
		hub:          cfg.Broadcaster,
		cache:        cfg.LatestCache,
		storeTimeout: cfg.StoreTimeout,
	}
}

// HandleMessage processes one raw broker message to a terminal outcome.
func (c *Coordinator) HandleMessage(ctx context.Context, raw []byte, topic string) Outcome {
	reading, err := decode.Uplink(raw, topic, time.Now().UTC())
	if err != nil {
		log := logger.WithComponent("coordinator")
		log.Warn().Err(err).
			Str("topic", topic).Msg("message dropped")
		metrics.MessagesDropped.WithLabelValues("decode").Inc()
		c.dropped.Add(1)
		return Dropped
	}
	return c.Process(ctx, reading)
}

// Process runs the post-decode stages for one reading. It always runs to
// completion, including on error paths.
func (c *Coordinator) Process(ctx context.Context, reading models.Reading) Outcome {
	log := logger.WithDevice(reading.DeviceID)

	// Evaluate. Rule lookup cannot fail the message: on a store error the
	// reading is evaluated against an unbounded rule.
	rule, err := c.rules.Get(ctx, reading.DeviceID)
	if err != nil {
		log.Error().Err(err).Msg("rule lookup failed, evaluating unbounded")
		rule = models.AlertRule{DeviceID: reading.DeviceID}
	}
	events := rules.Evaluate(reading, rule)

	// Persist. A failure here degrades history, not the live feed.
	persisted := c.persist(ctx, reading)

	if c.cache != nil {
		if err := c.cache.Set(ctx, reading); err != nil {
			log.Debug().Err(err).Msg("latest-reading cache update failed")
		}
	}

	// Broadcast, always attempted after a successful decode.
	c.hub.Publish("reading", reading)
	for _, event := range events {
		metrics.AlertsEmitted.WithLabelValues(string(event.Metric), string(event.BoundKind)).Inc()
		c.hub.Publish("alert", event)
	}
	if len(events) > 0 {
		log.Info().Int("alerts", len(events)).Time("ts", reading.Timestamp).
			Msg("reading violated alert thresholds")
	}

	if !persisted {
		c.partial.Add(1)
		return PartiallyFailed
	}
	c.delivered.Add(1)
	return Delivered
}

// persist appends the reading with a bounded timeout so a slow backend
// cannot stall message consumption.
func (c *Coordinator) persist(ctx context.Context, reading models.Reading) bool {
	ctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()

	start := time.Now()
	err := c.store.Append(ctx, reading)
	metrics.StoreAppendDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		log := logger.WithDevice(reading.DeviceID)
		log.Error().Err(err).Msg("failed to persist reading")
		metrics.PersistFailures.Inc()
		return false
	}
	metrics.ReadingsPersisted.Inc()
	return true
}

// Stats returns cumulative outcome counters.
func (c *Coordinator) Stats() Stats {
	return Stats{
		Delivered:       c.delivered.Load(),
		PartiallyFailed: c.partial.Load(),
		Dropped:         c.dropped.Load(),
	}
}

// Stats holds coordinator outcome counters.
type Stats struct {
	Delivered       uint64 `json:"delivered"`
	PartiallyFailed uint64 `json:"partially_failed"`
	Dropped         uint64 `json:"dropped"`
}

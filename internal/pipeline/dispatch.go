package pipeline

import (
	"context"
	"hash/fnv"
	"runtime/debug"
	"sync"
	"time"

	"firewatch/internal/decode"
	"firewatch/internal/logger"
	"firewatch/internal/metrics"
	"firewatch/internal/models"
)

// Dispatcher fans readings out to a fixed set of workers, sharded by
// device ID. One device always lands on the same worker, so its messages
// are processed in receipt order; distinct devices run in parallel.
//
// Decode runs on the broker's consumer goroutine (it is cheap and needs
// the device ID for sharding); the remaining stages run on the shard
// worker. Queues are bounded: when a shard's queue is full the reading is
// dropped and counted rather than blocking the consumer loop.
type Dispatcher struct {
	coordinator *Coordinator
	queues      []chan models.Reading

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// DispatcherConfig sizes the dispatch stage.
type DispatcherConfig struct {
	Coordinator *Coordinator
	Workers     int
	QueueSize   int
}

// NewDispatcher creates a stopped dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	queues := make([]chan models.Reading, cfg.Workers)
	for i := range queues {
		queues[i] = make(chan models.Reading, cfg.QueueSize)
	}

	ctx, cancel := context.WithCancel(context.Background())
	metrics.DispatchQueueCapacity.Set(float64(cfg.Workers * cfg.QueueSize))

	return &Dispatcher{
		coordinator: cfg.Coordinator,
		queues:      queues,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the shard workers.
func (d *Dispatcher) Start() {
	log := logger.WithComponent("dispatcher")
	log.Info().Int("workers", len(d.queues)).Int("queue_size", cap(d.queues[0])).
		Msg("starting dispatcher")

	for i := range d.queues {
		d.wg.Add(1)
		go d.worker(i)
	}
}

// Stop drains the queues and waits for the workers to finish.
func (d *Dispatcher) Stop() {
	log := logger.WithComponent("dispatcher")
	log.Info().Msg("stopping dispatcher")
	for _, q := range d.queues {
		close(q)
	}
	d.wg.Wait()
	d.cancel()
	log.Info().Msg("dispatcher stopped")
}

// HandleMessage is the broker.MessageHandler entry point.
func (d *Dispatcher) HandleMessage(topic string, payload []byte) {
	reading, err := decode.Uplink(payload, topic, time.Now().UTC())
	if err != nil {
		log := logger.WithComponent("dispatcher")
		log.Warn().Err(err).
			Str("topic", topic).Msg("message dropped")
		metrics.MessagesDropped.WithLabelValues("decode").Inc()
		d.coordinator.dropped.Add(1)
		return
	}
	d.Enqueue(reading)
}

// Enqueue hands a decoded reading to its device's shard without blocking.
func (d *Dispatcher) Enqueue(reading models.Reading) {
	shard := d.shardFor(reading.DeviceID)
	select {
	case d.queues[shard] <- reading:
		d.updateDepth()
	default:
		log := logger.WithDevice(reading.DeviceID)
		log.Warn().Int("shard", shard).
			Msg("dispatch queue full, reading dropped")
		metrics.MessagesDropped.WithLabelValues("queue_full").Inc()
		d.coordinator.dropped.Add(1)
	}
}

func (d *Dispatcher) shardFor(deviceID string) int {
	h := fnv.New32a()
	h.Write([]byte(deviceID))
	return int(h.Sum32() % uint32(len(d.queues)))
}

func (d *Dispatcher) updateDepth() {
	depth := 0
	for _, q := range d.queues {
		depth += len(q)
	}
	metrics.DispatchQueueDepth.Set(float64(depth))
}

// worker processes one shard's readings in order.
func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	log := logger.WithComponent("dispatcher").With().Int("shard", id).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("shard worker panic recovered")
			metrics.PanicsRecovered.WithLabelValues("dispatcher").Inc()
		}
	}()

	for reading := range d.queues[id] {
		d.coordinator.Process(d.ctx, reading)
		d.updateDepth()
	}
}

package broker

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/segmentio/kafka-go"

	"firewatch/internal/config"
	"firewatch/internal/logger"
	"firewatch/internal/metrics"
)

// KafkaSource consumes device uplinks from a Kafka topic, for deployments
// that bridge the MQTT broker into Kafka. The bridge partitions by device
// ID, so per-partition order is per-device order; messages are handed to
// the handler sequentially from a single reader.
type KafkaSource struct {
	reader *kafka.Reader
}

// NewKafkaSource creates a consumer for the uplink topic.
func NewKafkaSource(cfg config.BrokerConfig) (*KafkaSource, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	if cfg.KafkaTopic == "" {
		return nil, errors.New("kafka topic is required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &KafkaSource{reader: reader}, nil
}

// Run consumes messages until ctx is cancelled.
func (s *KafkaSource) Run(ctx context.Context, handler MessageHandler) error {
	log := logger.WithComponent("kafka_source")
	log.Info().Str("topic", s.reader.Config().Topic).Msg("consuming uplink topic")

	for {
		msg, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("kafka read failed: %w", err)
		}

		metrics.MessagesConsumed.WithLabelValues("kafka").Inc()
		handler(msg.Topic, msg.Value)
	}
}

// Close shuts down the reader.
func (s *KafkaSource) Close() error {
	return s.reader.Close()
}

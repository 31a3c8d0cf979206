package broker

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"firewatch/internal/config"
	"firewatch/internal/logger"
	"firewatch/internal/metrics"
)

// MQTTSource consumes device uplinks from an MQTT broker, typically TTN's
// (topic filter v3/+/devices/+/up). Paho invokes the subscription callback
// in order per topic, so same-device messages reach the handler in receipt
// order.
type MQTTSource struct {
	cfg    config.BrokerConfig
	client mqtt.Client
}

// NewMQTTSource prepares an MQTT consumer; the connection is made in Run.
func NewMQTTSource(cfg config.BrokerConfig) *MQTTSource {
	return &MQTTSource{cfg: cfg}
}

// Run connects, subscribes, and blocks until ctx is cancelled.
func (s *MQTTSource) Run(ctx context.Context, handler MessageHandler) error {
	log := logger.WithComponent("mqtt_source")

	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.MQTTURL).
		SetClientID(s.cfg.MQTTClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)
	if s.cfg.MQTTUsername != "" {
		opts.SetUsername(s.cfg.MQTTUsername)
		opts.SetPassword(s.cfg.MQTTPassword)
	}
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		// Resubscribe on every (re)connect so reconnects keep the feed alive.
		token := client.Subscribe(s.cfg.MQTTTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			metrics.MessagesConsumed.WithLabelValues("mqtt").Inc()
			handler(msg.Topic(), msg.Payload())
		})
		if token.Wait() && token.Error() != nil {
			log.Error().Err(token.Error()).Str("topic", s.cfg.MQTTTopic).Msg("subscribe failed")
			return
		}
		log.Info().Str("topic", s.cfg.MQTTTopic).Msg("subscribed to uplink topic")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("mqtt connection lost")
	})

	s.client = mqtt.NewClient(opts)
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect failed: %w", token.Error())
	}
	log.Info().Str("broker", s.cfg.MQTTURL).Msg("connected to mqtt broker")

	<-ctx.Done()
	return nil
}

// Close disconnects from the broker.
func (s *MQTTSource) Close() error {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
	}
	return nil
}

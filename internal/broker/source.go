package broker

import "context"

// MessageHandler processes one raw uplink message. The broker calls it
// sequentially per topic, which is what preserves per-device ordering.
type MessageHandler func(topic string, payload []byte)

// Source is an uplink message transport. Run blocks until ctx is
// cancelled or the transport fails fatally.
type Source interface {
	Run(ctx context.Context, handler MessageHandler) error
	Close() error
}

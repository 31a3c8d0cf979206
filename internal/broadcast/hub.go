package broadcast

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"firewatch/internal/logger"
	"firewatch/internal/metrics"
)

// Event is the wire frame pushed to live subscribers.
type Event struct {
	Type    string `json:"type"` // "reading" or "alert"
	Payload any    `json:"payload"`
}

// Hub fans events out to all connected subscribers.
//
// The run loop is the sole owner of the client registry, so registry
// mutation and iterate-to-publish never race. Delivery is best-effort: a
// subscriber whose send buffer is full is assumed dead and removed on the
// spot, without affecting delivery to others. Publish never blocks the
// caller; if the hub's own queue is full the event is dropped and counted.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	upgrader websocket.Upgrader
}

// NewHub creates a hub; call Run before publishing.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard is served from another origin in dev setups.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Run owns the registry until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	log := logger.WithComponent("broadcast")

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			log.Info().Msg("broadcast hub stopped")
			return

		case client := <-h.register:
			h.clients[client] = true
			metrics.SubscribersConnected.Set(float64(len(h.clients)))
			log.Debug().Str("subscriber_id", client.ID).Msg("subscriber registered")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Debug().Str("subscriber_id", client.ID).Msg("subscriber unregistered")
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Send buffer full: the subscriber is slow or gone.
					log.Debug().Str("subscriber_id", client.ID).Msg("subscriber lagging, removing")
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	metrics.SubscribersConnected.Set(float64(len(h.clients)))
}

// Publish queues an event for delivery to every current subscriber.
func (h *Hub) Publish(eventType string, payload any) {
	message, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		log := logger.WithComponent("broadcast")
		log.Error().Err(err).Str("type", eventType).
			Msg("failed to marshal broadcast event")
		return
	}

	select {
	case h.broadcast <- message:
		metrics.BroadcastEvents.WithLabelValues(eventType).Inc()
	default:
		metrics.BroadcastDropped.Inc()
	}
}

// ServeWS upgrades an HTTP request to a websocket subscription.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log := logger.WithComponent("broadcast")
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := newClient(h, conn)
	h.register <- client

	go client.writePump()
	go client.readPump()
}

package realtime

import (
	"context"
	"sync"

	logger "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Logger"
	iotmodels "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Models"
)

// Event types pushed to connected clients.
const (
	MessageTypeDeviceAck = "device_ack"
	MessageTypeTelemetry = "telemetry"
)

// Message is a push event delivered to every connected client.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains the set of live connections and fans events out to them.
// No delivery guarantees beyond the transport's: a client whose send
// buffer is full is dropped.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	log        *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log.WithComponent("realtime"),
	}
}

// Run owns the client set until ctx is cancelled, then closes every
// connection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.log.WithField("total_clients", total).Info("client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.WithField("total_clients", total).Info("client disconnected")

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

func (h *Hub) fanOut(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			// Slow consumer: drop the connection rather than block the hub.
			close(client.send)
			delete(h.clients, client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.log.Info("closed all realtime clients")
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues an event for delivery to all clients, dropping it when
// the hub is saturated.
func (h *Hub) Broadcast(messageType string, data interface{}) {
	select {
	case h.broadcast <- Message{Type: messageType, Data: data}:
	default:
		h.log.WithField("message_type", messageType).Warn("broadcast channel full, dropping message")
	}
}

// DeviceAck pushes a device acknowledgement event.
func (h *Hub) DeviceAck(macAddress string) {
	h.Broadcast(MessageTypeDeviceAck, map[string]string{"macAddress": macAddress})
}

// Telemetry pushes a live telemetry notice.
func (h *Hub) Telemetry(record iotmodels.TelemetryRecord) {
	h.Broadcast(MessageTypeTelemetry, record)
}

// server/internal/socket/hub.go
package socket

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"mediradar-api-server/internal/metrics"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// PharmacyTopic receives request.created events for the pharmacy portal.
	PharmacyTopic = "pharmacies"

	writeWait  = 10 * time.Second
	pingPeriod = 25 * time.Second
	sendBuffer = 16
)

// RequestTopic is the topic carrying one request's events.
func RequestTopic(requestID string) string {
	return "request:" + requestID
}

func channelOf(topic string) string {
	if i := strings.IndexByte(topic, ':'); i >= 0 {
		return topic[:i]
	}
	return topic
}

// Event is the JSON frame written to subscribers.
type Event struct {
	Type string    `json:"type"`
	Data any       `json:"data"`
	At   time.Time `json:"at"`
}

// Client is one websocket subscribed to a topic. Only its write pump writes to conn.
type Client struct {
	hub   *Hub
	topic string
	conn  *websocket.Conn
	send  chan []byte
	once  sync.Once
}

// Hub fans events out to the clients subscribed to each topic.
type Hub struct {
	mu      sync.RWMutex
	topics  map[string]map[*Client]struct{}
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewHub(log *zap.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		topics:  make(map[string]map[*Client]struct{}),
		log:     log,
		metrics: m,
		now:     time.Now,
	}
}

// Register subscribes conn to topic and starts its write pump.
func (h *Hub) Register(topic string, conn *websocket.Conn) *Client {
	c := &Client{hub: h, topic: topic, conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Client]struct{})
		h.topics[topic] = subs
	}
	subs[c] = struct{}{}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.ClientConnected(channelOf(topic))
	}
	h.log.Debug("websocket client registered", zap.String("topic", topic))
	go c.writePump()
	return c
}

// Unregister removes c and closes its send queue. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	c.once.Do(func() {
		h.mu.Lock()
		if subs, ok := h.topics[c.topic]; ok {
			delete(subs, c)
			if len(subs) == 0 {
				delete(h.topics, c.topic)
			}
		}
		close(c.send)
		h.mu.Unlock()

		if h.metrics != nil {
			h.metrics.ClientDisconnected(channelOf(c.topic))
		}
		h.log.Debug("websocket client unregistered", zap.String("topic", c.topic))
	})
}

// Subscribers returns the number of clients on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Publish queues an event for every subscriber of topic. Clients whose queue is full miss the event.
func (h *Hub) Publish(topic, eventType string, data any) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data, At: h.now().UTC()})
	if err != nil {
		h.log.Error("failed to encode websocket event", zap.String("type", eventType), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.topics[topic] {
		select {
		case c.send <- payload:
		default:
			h.log.Warn("websocket client queue full, dropping event",
				zap.String("topic", topic), zap.String("type", eventType))
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

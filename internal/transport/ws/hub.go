// Package ws streams postback audit entries to admins as they happen.
package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"surveypulse/internal/model"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MsgDelivery MessageType = "postback_delivery"
	MsgInbound  MessageType = "postback_received"
)

// TopicAll receives every entry regardless of survey or share
const TopicAll = "all"

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans audit entries out to subscribed admin connections
type Hub struct {
	// topic -> connections
	conns map[string]map[*Connection]struct{}

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan model.AuditLogEntry
	done       chan struct{}
	stopOnce   sync.Once

	logger *slog.Logger
}

// Connection is one subscribed WebSocket client
type Connection struct {
	Topic string // survey:<id>, share:<id> or TopicAll
	Send  chan []byte
	Hub   *Hub
}

// NewHub creates a new WebSocket hub and starts its loop
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		conns:      make(map[string]map[*Connection]struct{}),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan model.AuditLogEntry, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
	go h.run()
	return h
}

// SurveyTopic is the topic carrying one survey's deliveries
func SurveyTopic(surveyID string) string { return "survey:" + surveyID }

// ShareTopic is the topic carrying one share's inbound calls
func ShareTopic(shareID string) string { return "share:" + shareID }

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for topic, conns := range h.conns {
				for conn := range conns {
					close(conn.Send)
				}
				delete(h.conns, topic)
			}
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			if h.conns[conn.Topic] == nil {
				h.conns[conn.Topic] = make(map[*Connection]struct{})
			}
			h.conns[conn.Topic][conn] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("feed subscriber connected", "topic", conn.Topic)

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.conns[conn.Topic]; ok {
				if _, ok := conns[conn]; ok {
					delete(conns, conn)
					close(conn.Send)
					if len(conns) == 0 {
						delete(h.conns, conn.Topic)
					}
					h.logger.Debug("feed subscriber disconnected", "topic", conn.Topic)
				}
			}
			h.mu.Unlock()

		case entry := <-h.broadcast:
			data, err := encode(entry)
			if err != nil {
				h.logger.Warn("failed to encode feed entry", "error", err)
				continue
			}
			h.mu.RLock()
			for _, topic := range topicsFor(entry) {
				for conn := range h.conns[topic] {
					select {
					case conn.Send <- data:
					default:
						// Drop message if buffer full
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		close(conn.Send)
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Publish queues an entry for subscribers. It never blocks the caller.
func (h *Hub) Publish(entry model.AuditLogEntry) {
	select {
	case h.broadcast <- entry:
	case <-h.done:
	default:
		h.logger.Debug("feed buffer full, entry not streamed", "recipient", entry.RecipientName)
	}
}

// Stop disconnects every subscriber and ends the hub loop
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Subscribers returns the number of connections on a topic
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[topic])
}

func topicsFor(entry model.AuditLogEntry) []string {
	topics := []string{TopicAll}
	if entry.SurveyID != "" {
		topics = append(topics, SurveyTopic(entry.SurveyID))
	}
	if entry.ShareID != "" {
		topics = append(topics, ShareTopic(entry.ShareID))
	}
	return topics
}

func encode(entry model.AuditLogEntry) ([]byte, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	msgType := MsgDelivery
	if entry.Type == model.AuditInbound {
		msgType = MsgInbound
	}
	return json.Marshal(&Message{Type: msgType, Payload: payload})
}

package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/thereayou/chatql/internal/metrics"
	"github.com/thereayou/chatql/internal/models"
	"go.uber.org/zap"
)

type EventType string

const (
	TypePing    EventType = "ping"
	TypePong    EventType = "pong"
	TypeMessage EventType = "message"
	TypeError   EventType = "error"
)

type Event struct {
	Type      EventType       `json:"type"`
	ChatID    *uuid.UUID      `json:"chatId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Encoder turns a stored message into the payload pushed to clients.
type Encoder func(msg *models.ResolvedMessage) (any, error)

type Client struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Conn   *websocket.Conn
	Send   chan []byte
	Hub    *Hub
}

// Hub tracks open connections per user and pushes new messages to every
// connection of every chat participant.
type Hub struct {
	clients map[uuid.UUID]*Client

	// one user may hold several connections
	userClients map[uuid.UUID]map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	encode  Encoder
	log     *zap.Logger
	metrics *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(encode Encoder, log *zap.Logger, m *metrics.Metrics) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[uuid.UUID]*Client),
		userClients: make(map[uuid.UUID]map[uuid.UUID]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		encode:      encode,
		log:         log,
		metrics:     m,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (h *Hub) Run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ticker.C:
			h.ping()
		}
	}
}

// Stop ends Run and closes every connection.
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		close(client.Send)
		if client.Conn != nil {
			client.Conn.Close()
		}
		delete(h.clients, id)
		h.gaugeDec()
	}
	h.userClients = make(map[uuid.UUID]map[uuid.UUID]*Client)
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	if _, ok := h.userClients[client.UserID]; !ok {
		h.userClients[client.UserID] = make(map[uuid.UUID]*Client)
	}
	h.userClients[client.UserID][client.ID] = client

	if h.metrics != nil {
		h.metrics.Connections.Inc()
	}
	h.log.Debug("client registered", zap.Stringer("client_id", client.ID), zap.Stringer("user_id", client.UserID))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	if userClients, ok := h.userClients[client.UserID]; ok {
		delete(userClients, client.ID)
		if len(userClients) == 0 {
			delete(h.userClients, client.UserID)
		}
	}
	delete(h.clients, client.ID)
	close(client.Send)
	h.gaugeDec()

	h.log.Debug("client unregistered", zap.Stringer("client_id", client.ID), zap.Stringer("user_id", client.UserID))
}

func (h *Hub) gaugeDec() {
	if h.metrics != nil {
		h.metrics.Connections.Dec()
	}
}

// MessageSent pushes msg to every connection of every participant of its
// chat, the sender included. Slow clients miss the event rather than block.
func (h *Hub) MessageSent(msg *models.ResolvedMessage) {
	if h.metrics != nil {
		h.metrics.MessagesSent.Inc()
	}
	if msg.Chat == nil {
		return
	}

	payload, err := h.encode(msg)
	if err != nil {
		h.log.Error("encode message event", zap.Stringer("message_id", msg.ID), zap.Error(err))
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("marshal message event", zap.Error(err))
		return
	}
	chatID := msg.ChatID
	event, err := json.Marshal(Event{Type: TypeMessage, ChatID: &chatID, Data: data, Timestamp: msg.CreatedAt})
	if err != nil {
		h.log.Error("marshal message event", zap.Error(err))
		return
	}

	h.SendToUsers(msg.Chat.ParticipantIDs(), event)
}

func (h *Hub) SendToUsers(userIDs []uuid.UUID, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, userID := range userIDs {
		for _, client := range h.userClients[userID] {
			select {
			case client.Send <- message:
			default:
				h.log.Warn("client send queue full", zap.Stringer("client_id", client.ID))
			}
		}
	}
}

func (h *Hub) ping() {
	data, err := json.Marshal(Event{Type: TypePing, Timestamp: time.Now()})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Send <- data:
		default:
		}
	}
}

// OnlineUsers returns the users with at least one open connection.
func (h *Hub) OnlineUsers() []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]uuid.UUID, 0, len(h.userClients))
	for userID := range h.userClients {
		users = append(users, userID)
	}
	return users
}

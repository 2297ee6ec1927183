package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait = 10 * time.Second

	pongWait = 60 * time.Second

	pingPeriod = (pongWait * 9) / 10

	// Clients only send control events, so reads stay small.
	maxMessageSize = 4 * 1024
)

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		ID:     uuid.New(),
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		Hub:    hub,
	}
}

// ReadPump keeps the connection alive and answers pings until the peer goes
// away. Anything else the client sends gets an error event back.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var event Event
		if err := c.Conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.Debug("websocket read failed", zap.Stringer("client_id", c.ID), zap.Error(err))
			}
			return
		}

		switch event.Type {
		case TypePong:
		case TypePing:
			c.SendEvent(TypePong, nil)
		default:
			c.SendError(ErrInvalidEvent.Error())
		}
	}
}

// WritePump drains Send onto the connection and pings the peer.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) SendEvent(eventType EventType, data interface{}) error {
	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
	}

	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		event.Data = raw
	}

	encoded, err := json.Marshal(event)
	if err != nil {
		return err
	}

	c.Hub.mu.RLock()
	defer c.Hub.mu.RUnlock()
	if _, ok := c.Hub.clients[c.ID]; !ok {
		return ErrClientClosed
	}

	select {
	case c.Send <- encoded:
		return nil
	default:
		return ErrClientQueueFull
	}
}

func (c *Client) SendError(message string) {
	c.SendEvent(TypeError, map[string]string{"message": message})
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Presence reports who currently holds a realtime connection.
type Presence interface {
	OnlineUsers() []uuid.UUID
}

// Health reports whether the store answers within two seconds, along with
// the number of users connected over websocket.
func Health(store Pinger, presence Presence) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		online := 0
		if presence != nil {
			online = len(presence.OnlineUsers())
		}

		if err := store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "online_users": online})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "online_users": online})
	}
}

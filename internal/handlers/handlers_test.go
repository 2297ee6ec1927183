package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/chatql/internal/services"
	"github.com/thereayou/chatql/internal/validation"
)

func TestWriteError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		err     error
		status  int
		message string
		fields  int
	}{
		{"validation", services.Invalid("Invalid email.", validation.FieldError{Field: "email", Tag: "email"}), http.StatusBadRequest, "Invalid email.", 1},
		{"conflict", services.Conflict("User with this email or username already exists."), http.StatusConflict, "User with this email or username already exists.", 0},
		{"unauthorized", services.Unauthorized("Invalid credentials."), http.StatusUnauthorized, "Invalid credentials.", 0},
		{"not found", services.NotFound("No chat found with provided chat id."), http.StatusNotFound, "No chat found with provided chat id.", 0},
		{"upstream", services.Upstream(errors.New("cloudinary: 503")), http.StatusInternalServerError, services.GenericMessage, 0},
		{"internal", services.Internal(errors.New("pq: connection refused")), http.StatusInternalServerError, services.GenericMessage, 0},
		{"untyped", errors.New("boom"), http.StatusInternalServerError, services.GenericMessage, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			writeError(c, tt.err)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			var body struct {
				Success bool                    `json:"success"`
				Message string                  `json:"message"`
				Errors  []validation.FieldError `json:"errors"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Success || body.Message != tt.message || len(body.Errors) != tt.fields {
				t.Errorf("body = %s", rec.Body)
			}
		})
	}
}

type fixedPresence []uuid.UUID

func (p fixedPresence) OnlineUsers() []uuid.UUID { return p }

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for _, tc := range []struct {
		err      error
		presence Presence
		status   int
		online   int
	}{
		{nil, fixedPresence{uuid.New(), uuid.New()}, http.StatusOK, 2},
		{nil, nil, http.StatusOK, 0},
		{errors.New("down"), fixedPresence{uuid.New()}, http.StatusServiceUnavailable, 1},
	} {
		r := gin.New()
		r.GET("/healthz", Health(pingerFunc(func(context.Context) error { return tc.err }), tc.presence))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != tc.status {
			t.Errorf("ping err %v: status = %d, want %d", tc.err, rec.Code, tc.status)
		}
		var body struct {
			Online int `json:"online_users"`
		}
		json.Unmarshal(rec.Body.Bytes(), &body)
		if body.Online != tc.online {
			t.Errorf("online_users = %d, want %d", body.Online, tc.online)
		}
	}
}

func TestWebSocketRequiresIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", NewWebSocketHandler(nil).HandleWebSocket)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

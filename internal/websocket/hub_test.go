package websocket

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/chatql/internal/metrics"
	"github.com/thereayou/chatql/internal/models"
	"go.uber.org/zap"
)

func newTestHub(encode Encoder) *Hub {
	if encode == nil {
		encode = func(m *models.ResolvedMessage) (any, error) {
			return map[string]string{"content": m.Content}, nil
		}
	}
	return NewHub(encode, zap.NewNop(), metrics.New())
}

func attach(h *Hub, userID uuid.UUID) *Client {
	c := NewClient(h, nil, userID)
	h.registerClient(c)
	return c
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case raw := <-c.Send:
		var e Event
		if err := json.Unmarshal(raw, &e); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		return e
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
	return Event{}
}

func TestMessageSentReachesParticipants(t *testing.T) {
	h := newTestHub(nil)
	alice, bob, eve := uuid.New(), uuid.New(), uuid.New()

	aliceTab1, aliceTab2 := attach(h, alice), attach(h, alice)
	bobConn := attach(h, bob)
	eveConn := attach(h, eve)

	chat := models.NewDirectChat(alice, bob, time.Now())
	h.MessageSent(&models.ResolvedMessage{
		Message: models.Message{ID: uuid.New(), ChatID: chat.ID, SenderID: alice, Content: "hi"},
		Chat:    &models.ResolvedChat{Chat: *chat},
	})

	for _, c := range []*Client{aliceTab1, aliceTab2, bobConn} {
		e := receive(t, c)
		if e.Type != TypeMessage || e.ChatID == nil || *e.ChatID != chat.ID {
			t.Fatalf("unexpected event %+v", e)
		}
		var payload map[string]string
		json.Unmarshal(e.Data, &payload)
		if payload["content"] != "hi" {
			t.Errorf("payload = %s", e.Data)
		}
	}

	select {
	case raw := <-eveConn.Send:
		t.Fatalf("non participant got %s", raw)
	default:
	}
}

func TestMessageSentSkipsOnEncodeError(t *testing.T) {
	h := newTestHub(func(*models.ResolvedMessage) (any, error) { return nil, errors.New("unresolved") })
	alice := uuid.New()
	c := attach(h, alice)

	chat := models.NewDirectChat(alice, uuid.New(), time.Now())
	h.MessageSent(&models.ResolvedMessage{
		Message: models.Message{ID: uuid.New(), ChatID: chat.ID},
		Chat:    &models.ResolvedChat{Chat: *chat},
	})

	select {
	case raw := <-c.Send:
		t.Fatalf("got %s after encode failure", raw)
	default:
	}
}

func TestUnregister(t *testing.T) {
	h := newTestHub(nil)
	alice := uuid.New()
	c := attach(h, alice)

	h.unregisterClient(c)
	if _, ok := <-c.Send; ok {
		t.Fatal("send channel still open")
	}
	if len(h.OnlineUsers()) != 0 {
		t.Errorf("online = %v", h.OnlineUsers())
	}
	if err := c.SendEvent(TypePong, nil); !errors.Is(err, ErrClientClosed) {
		t.Errorf("SendEvent after close = %v", err)
	}

	// A second unregister is a no-op.
	h.unregisterClient(c)
}

func TestRunRegistersClients(t *testing.T) {
	h := newTestHub(nil)
	go h.Run()
	defer h.Stop()

	alice := uuid.New()
	h.Register(NewClient(h, nil, alice))

	deadline := time.Now().Add(time.Second)
	for len(h.OnlineUsers()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/chatql/internal/database"
	"github.com/thereayou/chatql/internal/media"
	"github.com/thereayou/chatql/internal/models"
	"github.com/thereayou/chatql/pkg/auth"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
)

var pngData = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

func newTestStore(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.Open(sqlite.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := db.SetPool(1, 1, 0); err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type fakeUploader struct {
	mu    sync.Mutex
	url   string
	err   error
	calls int
}

func (f *fakeUploader) Upload(_ context.Context, _ *media.File) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []*models.ResolvedMessage
}

func (n *recordingNotifier) MessageSent(m *models.ResolvedMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, m)
}

var errUploadDown = errors.New("media host unavailable")

type fixture struct {
	store    *database.Database
	uploader *fakeUploader
	notifier *recordingNotifier
	auth     *AuthService
	users    *UserService
	chats    *ChatService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newTestStore(t)
	uploader := &fakeUploader{url: "https://media.example.com/u/1.png"}
	notifier := &recordingNotifier{}
	log := zap.NewNop()
	tokens := auth.NewJWTManager("test-secret", auth.TokenTTL)
	return &fixture{
		store:    store,
		uploader: uploader,
		notifier: notifier,
		auth:     NewAuthService(store, uploader, tokens, nil, log),
		users:    NewUserService(store, uploader, log),
		chats:    NewChatService(store, uploader, notifier, log),
	}
}

// register creates a user named after username with password "secret1".
func (f *fixture) register(t *testing.T, username string) uuid.UUID {
	t.Helper()
	id, err := f.auth.Register(context.Background(), RegisterRequest{
		Name:     username,
		Username: username,
		Email:    username + "@x.com",
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return id
}

func assertKind(t *testing.T, err, kind error) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}

func ptr[T any](v T) *T { return &v }

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

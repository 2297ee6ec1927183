package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/chatql/internal/database"
	"github.com/thereayou/chatql/internal/media"
	"github.com/thereayou/chatql/internal/models"
	"go.uber.org/zap"
)

const (
	DefaultChatsLimit    = 20
	DefaultMessagesLimit = 50
)

// MessageBody is either TextBody or FileBody. A nil body is rejected.
type MessageBody interface {
	isMessageBody()
}

type TextBody string

type FileBody struct {
	File *media.File
}

func (TextBody) isMessageBody() {}
func (FileBody) isMessageBody() {}

type ChatService struct {
	store    Store
	media    media.Uploader
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewChatService(store Store, uploader media.Uploader, notifier Notifier, log *zap.Logger) *ChatService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &ChatService{
		store:    store,
		media:    uploader,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// GetOrCreateDirectChat returns the direct chat between self and other,
// creating it on first use. The store's unique pair key makes concurrent
// callers converge on one chat.
func (s *ChatService) GetOrCreateDirectChat(ctx context.Context, self, other uuid.UUID) (*models.ResolvedChat, error) {
	if self == other {
		return nil, Invalid("Cannot create a chat with yourself.")
	}

	if _, err := s.store.GetUser(ctx, other); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, NotFound("No user found with provided user id.")
		}
		return nil, s.internal("load recipient", err)
	}

	key := models.DirectKey(self, other)
	chat, err := s.store.FindDirectChat(ctx, key)
	if errors.Is(err, database.ErrNotFound) {
		chat = models.NewDirectChat(self, other, s.now())
		err = s.store.CreateChat(ctx, chat)
		if errors.Is(err, database.ErrDuplicate) {
			chat, err = s.store.FindDirectChat(ctx, key)
		}
	}
	if err != nil {
		return nil, s.internal("get or create direct chat", err)
	}

	return s.resolveChat(ctx, chat.ID)
}

type groupChatInput struct {
	Name         string      `json:"chatName" validate:"min=2,max=15"`
	Participants []uuid.UUID `json:"participants" validate:"min=2"`
}

// CreateGroupChat creates a group administered by self. Self is always a
// member; repeated ids are collapsed.
func (s *ChatService) CreateGroupChat(ctx context.Context, self uuid.UUID, name string, participants []uuid.UUID) (*models.ResolvedChat, error) {
	if err := checkInput(groupChatInput{Name: name, Participants: participants}); err != nil {
		return nil, err
	}

	seen := map[uuid.UUID]bool{self: true}
	var others []uuid.UUID
	for _, id := range participants {
		if !seen[id] {
			seen[id] = true
			others = append(others, id)
		}
	}

	if len(others) == 0 {
		return nil, Invalid("A group needs at least one other participant.")
	}

	users, err := s.store.GetUsers(ctx, others)
	if err != nil {
		return nil, s.internal("load participants", err)
	}
	found := make(map[uuid.UUID]bool, len(users))
	for _, u := range users {
		found[u.ID] = true
	}
	for _, id := range others {
		if !found[id] {
			return nil, Invalid("Invalid request.")
		}
	}

	chat := models.NewGroupChat(name, self, append(others, self), s.now())
	if err := s.store.CreateChat(ctx, chat); err != nil {
		return nil, s.internal("create group chat", err)
	}
	return s.resolveChat(ctx, chat.ID)
}

// SendMessage stores a message from self in chatID. File bodies are uploaded
// first and the message keeps the returned URL.
func (s *ChatService) SendMessage(ctx context.Context, self, chatID uuid.UUID, body MessageBody) (*models.ResolvedMessage, error) {
	chat, err := s.participantChat(ctx, self, chatID)
	if err != nil {
		return nil, err
	}

	var content string
	switch b := body.(type) {
	case TextBody:
		if b == "" {
			return nil, Invalid("Invalid message.")
		}
		content = string(b)
	case FileBody:
		if b.File == nil {
			return nil, Invalid("Either send text or file.")
		}
		if err := media.CheckImage(b.File); err != nil {
			return nil, Invalid(err.Error(), uploadField("file", err))
		}
		url, err := s.media.Upload(ctx, b.File)
		if err != nil {
			s.log.Error("message upload failed", zap.Stringer("chat_id", chatID), zap.Error(err))
			return nil, Upstream(err)
		}
		content = url
	default:
		return nil, Invalid("Either send text or file.")
	}

	now := s.now()
	if now.Before(chat.LastMessageAt) {
		now = chat.LastMessageAt
	}
	// v7 ids sort by creation, which orders messages sharing a timestamp.
	id, err := uuid.NewV7()
	if err != nil {
		return nil, s.internal("message id", err)
	}
	msg := &models.Message{
		ID:        id,
		ChatID:    chat.ID,
		SenderID:  self,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return nil, s.internal("save message", err)
	}

	resolved, err := s.store.ResolveMessage(ctx, msg.ID)
	if err != nil {
		return nil, s.internal("load message", err)
	}
	s.notifier.MessageSent(resolved)
	return resolved, nil
}

type listChatsInput struct {
	Skip  int `json:"skip" validate:"gte=0"`
	Limit int `json:"limit" validate:"gte=20,lte=100"`
}

// ListChats pages through the chats self belongs to, most recent first.
func (s *ChatService) ListChats(ctx context.Context, self uuid.UUID, skip, limit *int) ([]models.ResolvedChat, error) {
	in := listChatsInput{Skip: 0, Limit: DefaultChatsLimit}
	if skip != nil {
		in.Skip = *skip
	}
	if limit != nil {
		in.Limit = *limit
	}
	if err := checkInput(in); err != nil {
		return nil, err
	}

	chats, err := s.store.ListUserChats(ctx, self, in.Skip, in.Limit)
	if err != nil {
		return nil, s.internal("list chats", err)
	}
	return chats, nil
}

type listMessagesInput struct {
	Limit int `json:"limit" validate:"gte=1,lte=100"`
}

// ListMessages returns chat history oldest first, optionally before a message.
func (s *ChatService) ListMessages(ctx context.Context, self, chatID uuid.UUID, limit *int, before *uuid.UUID) ([]models.ResolvedMessage, error) {
	in := listMessagesInput{Limit: DefaultMessagesLimit}
	if limit != nil {
		in.Limit = *limit
	}
	if err := checkInput(in); err != nil {
		return nil, err
	}

	if _, err := s.participantChat(ctx, self, chatID); err != nil {
		return nil, err
	}

	messages, err := s.store.GetChatMessages(ctx, chatID, in.Limit, before)
	if errors.Is(err, database.ErrNotFound) {
		return nil, NotFound("No message found with provided cursor.")
	}
	if err != nil {
		return nil, s.internal("list messages", err)
	}
	return messages, nil
}

// participantChat loads chatID and hides it from non-members.
func (s *ChatService) participantChat(ctx context.Context, self, chatID uuid.UUID) (*models.Chat, error) {
	chat, err := s.store.GetChat(ctx, chatID)
	if errors.Is(err, database.ErrNotFound) || (err == nil && !chat.HasParticipant(self)) {
		return nil, NotFound("No chat found with provided chat id.")
	}
	if err != nil {
		return nil, s.internal("load chat", err)
	}
	return chat, nil
}

func (s *ChatService) resolveChat(ctx context.Context, id uuid.UUID) (*models.ResolvedChat, error) {
	chat, err := s.store.ResolveChat(ctx, id)
	if err != nil {
		return nil, s.internal("load chat", err)
	}
	return chat, nil
}

func (s *ChatService) internal(op string, err error) error {
	s.log.Error(op+" failed", zap.Error(err))
	return Internal(err)
}

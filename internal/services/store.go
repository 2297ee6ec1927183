package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/thereayou/chatql/internal/models"
)

// Store is the persistence contract shared by the gorm and mongo backends.
// Lookups of missing records fail with database.ErrNotFound, unique index
// violations with database.ErrDuplicate.
type Store interface {
	SaveUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUsers(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	UserTaken(ctx context.Context, email, username string, exclude uuid.UUID) (bool, error)
	UpdateUser(ctx context.Context, id uuid.UUID, upd models.UserUpdate) (*models.User, error)

	CreateChat(ctx context.Context, chat *models.Chat) error
	GetChat(ctx context.Context, id uuid.UUID) (*models.Chat, error)
	FindDirectChat(ctx context.Context, key string) (*models.Chat, error)
	ResolveChat(ctx context.Context, id uuid.UUID) (*models.ResolvedChat, error)
	ListUserChats(ctx context.Context, userID uuid.UUID, skip, limit int) ([]models.ResolvedChat, error)

	SaveMessage(ctx context.Context, message *models.Message) error
	ResolveMessage(ctx context.Context, id uuid.UUID) (*models.ResolvedMessage, error)
	GetChatMessages(ctx context.Context, chatID uuid.UUID, limit int, beforeID *uuid.UUID) ([]models.ResolvedMessage, error)

	Ping(ctx context.Context) error
	Close() error
}

// Notifier is told about every stored message.
type Notifier interface {
	MessageSent(msg *models.ResolvedMessage)
}

type noopNotifier struct{}

func (noopNotifier) MessageSent(*models.ResolvedMessage) {}

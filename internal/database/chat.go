package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/chatql/internal/models"
	"gorm.io/gorm"
)

func (d *Database) CreateChat(ctx context.Context, chat *models.Chat) error {
	return translate(d.db.WithContext(ctx).Create(chat).Error)
}

func (d *Database) GetChat(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	var chat models.Chat
	if err := d.db.WithContext(ctx).Preload("Members").First(&chat, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &chat, nil
}

// FindDirectChat looks a direct chat up by its member pair key.
func (d *Database) FindDirectChat(ctx context.Context, key string) (*models.Chat, error) {
	var chat models.Chat
	err := d.db.WithContext(ctx).
		Preload("Members").
		Where("is_group = ? AND direct_key = ?", false, key).
		First(&chat).Error
	if err != nil {
		return nil, translate(err)
	}
	return &chat, nil
}

func (d *Database) ResolveChat(ctx context.Context, id uuid.UUID) (*models.ResolvedChat, error) {
	chat, err := d.GetChat(ctx, id)
	if err != nil {
		return nil, err
	}
	resolved, err := d.resolveChats(ctx, []models.Chat{*chat})
	if err != nil {
		return nil, err
	}
	return &resolved[0], nil
}

// TouchChat moves last_message_at forward to at. It never moves it back.
func (d *Database) TouchChat(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := d.db.WithContext(ctx).
		Model(&models.Chat{}).
		Where("id = ? AND last_message_at < ?", id, at).
		Updates(map[string]any{"last_message_at": at, "updated_at": at})
	return translate(res.Error)
}

// ListUserChats returns the chats userID belongs to, most recently active first.
func (d *Database) ListUserChats(ctx context.Context, userID uuid.UUID, skip, limit int) ([]models.ResolvedChat, error) {
	var chats []models.Chat
	err := d.db.WithContext(ctx).
		Preload("Members").
		Joins("JOIN chat_members cm ON cm.chat_id = chats.id").
		Where("cm.user_id = ?", userID).
		Order("chats.last_message_at DESC").
		Order("chats.created_at DESC").
		Offset(skip).
		Limit(limit).
		Find(&chats).Error
	if err != nil {
		return nil, translate(err)
	}
	return d.resolveChats(ctx, chats)
}

func (d *Database) resolveChats(ctx context.Context, chats []models.Chat) ([]models.ResolvedChat, error) {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	add := func(id uuid.UUID) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, c := range chats {
		for _, m := range c.Members {
			add(m.UserID)
		}
		if c.AdminID != nil {
			add(*c.AdminID)
		}
	}

	users, err := d.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	return ResolveChats(chats, users)
}

// ResolveChats hydrates chats from an already loaded user set. Every member
// and admin must be present in users.
func ResolveChats(chats []models.Chat, users []models.User) ([]models.ResolvedChat, error) {
	byID := make(map[uuid.UUID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	out := make([]models.ResolvedChat, len(chats))
	for i, c := range chats {
		rc := models.ResolvedChat{Chat: c}
		for _, id := range c.ParticipantIDs() {
			u, ok := byID[id]
			if !ok {
				return nil, ErrUnresolved
			}
			rc.Participants = append(rc.Participants, u)
		}
		if c.AdminID != nil {
			u, ok := byID[*c.AdminID]
			if !ok {
				return nil, ErrUnresolved
			}
			rc.Admin = &u
		}
		out[i] = rc
	}
	return out, nil
}

func (d *Database) withTx(ctx context.Context, fn func(tx *Database) error) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Database{db: tx})
	})
}

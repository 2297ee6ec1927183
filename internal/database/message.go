package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/chatql/internal/models"
)

// SaveMessage stores message and advances the chat's last_message_at in one
// transaction.
func (d *Database) SaveMessage(ctx context.Context, message *models.Message) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	return d.withTx(ctx, func(tx *Database) error {
		if err := translate(tx.db.Create(message).Error); err != nil {
			return err
		}
		return tx.TouchChat(ctx, message.ChatID, message.CreatedAt)
	})
}

func (d *Database) GetMessage(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	var message models.Message
	if err := d.db.WithContext(ctx).First(&message, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &message, nil
}

func (d *Database) ResolveMessage(ctx context.Context, id uuid.UUID) (*models.ResolvedMessage, error) {
	message, err := d.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	chat, err := d.ResolveChat(ctx, message.ChatID)
	if err != nil {
		return nil, err
	}
	sender, err := d.GetUser(ctx, message.SenderID)
	if err != nil {
		return nil, ErrUnresolved
	}
	return &models.ResolvedMessage{Message: *message, Chat: chat, Sender: sender}, nil
}

// GetChatMessages returns up to limit messages of a chat, oldest first. With
// beforeID set only messages ordered before that message are returned; the
// cursor is (created_at, id) so messages sharing a timestamp are not skipped.
// A cursor from another chat is ErrNotFound.
func (d *Database) GetChatMessages(ctx context.Context, chatID uuid.UUID, limit int, beforeID *uuid.UUID) ([]models.ResolvedMessage, error) {
	chat, err := d.ResolveChat(ctx, chatID)
	if err != nil {
		return nil, err
	}

	query := d.db.WithContext(ctx).Where("chat_id = ?", chatID)
	if beforeID != nil {
		before, err := d.GetMessage(ctx, *beforeID)
		if err != nil {
			return nil, err
		}
		if before.ChatID != chatID {
			return nil, ErrNotFound
		}
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", before.CreatedAt, before.CreatedAt, before.ID)
	}

	var messages []models.Message
	err = query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, translate(err)
	}

	return ResolveMessages(chat, messages)
}

// ResolveMessages attaches chat and senders to messages and reverses them
// into chronological order. Senders are looked up among the chat's
// participants.
func ResolveMessages(chat *models.ResolvedChat, newestFirst []models.Message) ([]models.ResolvedMessage, error) {
	senders := make(map[uuid.UUID]*models.User, len(chat.Participants))
	for i := range chat.Participants {
		senders[chat.Participants[i].ID] = &chat.Participants[i]
	}

	out := make([]models.ResolvedMessage, len(newestFirst))
	for i, m := range newestFirst {
		sender, ok := senders[m.SenderID]
		if !ok {
			return nil, ErrUnresolved
		}
		out[len(newestFirst)-1-i] = models.ResolvedMessage{Message: m, Chat: chat, Sender: sender}
	}
	return out, nil
}

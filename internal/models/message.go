package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;index:idx_messages_chat_created,priority:3"`
	ChatID    uuid.UUID `gorm:"type:uuid;not null;index:idx_messages_chat_created,priority:1"`
	SenderID  uuid.UUID `gorm:"type:uuid;not null"`
	Content   string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"index:idx_messages_chat_created,priority:2"`
	UpdatedAt time.Time
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// ResolvedMessage carries the message with its sender and chat loaded.
type ResolvedMessage struct {
	Message
	Chat   *ResolvedChat
	Sender *User
}

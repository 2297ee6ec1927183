package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chat is a direct (two member) or group conversation. Members are stored as
// raw user ids; see ResolvedChat for the hydrated form.
type Chat struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name    *string   `gorm:"size:50"`
	IsGroup bool      `gorm:"not null;default:false"`
	// DirectKey is set only for direct chats and is unique per member pair.
	DirectKey     *string    `gorm:"size:80;uniqueIndex"`
	AdminID       *uuid.UUID `gorm:"type:uuid"`
	LastMessageAt time.Time  `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Members []ChatMember `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE"`
}

type ChatMember struct {
	ChatID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID   uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	Position int       `gorm:"not null"`
}

func (c *Chat) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// NewDirectChat builds a direct chat between a and b.
func NewDirectChat(a, b uuid.UUID, now time.Time) *Chat {
	key := DirectKey(a, b)
	c := &Chat{
		ID:            uuid.New(),
		DirectKey:     &key,
		LastMessageAt: now,
	}
	c.SetParticipants([]uuid.UUID{a, b})
	return c
}

// NewGroupChat builds a group chat administered by admin.
func NewGroupChat(name string, admin uuid.UUID, participants []uuid.UUID, now time.Time) *Chat {
	c := &Chat{
		ID:            uuid.New(),
		Name:          &name,
		IsGroup:       true,
		AdminID:       &admin,
		LastMessageAt: now,
	}
	c.SetParticipants(participants)
	return c
}

func (c *Chat) SetParticipants(ids []uuid.UUID) {
	c.Members = make([]ChatMember, len(ids))
	for i, id := range ids {
		c.Members[i] = ChatMember{ChatID: c.ID, UserID: id, Position: i}
	}
}

// ParticipantIDs returns member ids in insertion order.
func (c *Chat) ParticipantIDs() []uuid.UUID {
	members := make([]ChatMember, len(c.Members))
	copy(members, c.Members)
	sort.SliceStable(members, func(i, j int) bool { return members[i].Position < members[j].Position })

	ids := make([]uuid.UUID, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	return ids
}

func (c *Chat) HasParticipant(id uuid.UUID) bool {
	for _, m := range c.Members {
		if m.UserID == id {
			return true
		}
	}
	return false
}

// DirectKey is the order independent identity of a member pair.
func DirectKey(a, b uuid.UUID) string {
	x, y := a.String(), b.String()
	if y < x {
		x, y = y, x
	}
	return x + ":" + y
}

// ResolvedChat is a chat with its member and admin references loaded.
type ResolvedChat struct {
	Chat
	Participants []User
	Admin        *User
}

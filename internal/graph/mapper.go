package graph

import (
	"errors"
	"fmt"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/thereayou/chatql/internal/models"
)

// ErrUnresolved means a record reached the mapper without its references
// loaded. It is a programming error, never a client one.
var ErrUnresolved = errors.New("graph: unresolved reference")

type User struct {
	ID             graphql.ID `json:"id"`
	Name           string     `json:"name"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	ProfilePicture string     `json:"profilePicture"`
	CreatedAt      Date       `json:"createdAt"`
	UpdatedAt      Date       `json:"updatedAt"`
}

type Chat struct {
	ID            graphql.ID `json:"id"`
	ChatName      *string    `json:"chatName,omitempty"`
	IsGroupChat   bool       `json:"isGroupChat"`
	Participants  []*User    `json:"participants"`
	GroupAdmin    *User      `json:"groupAdmin,omitempty"`
	LastMessageAt Date       `json:"lastMessageAt"`
	CreatedAt     Date       `json:"createdAt"`
	UpdatedAt     Date       `json:"updatedAt"`
}

type Message struct {
	ID        graphql.ID `json:"id"`
	Chat      *Chat      `json:"chat"`
	Sender    *User      `json:"sender"`
	Content   string     `json:"content"`
	CreatedAt Date       `json:"createdAt"`
	UpdatedAt Date       `json:"updatedAt"`
}

func MapUser(u *models.User) (*User, error) {
	if u == nil {
		return nil, fmt.Errorf("%w: user", ErrUnresolved)
	}
	return &User{
		ID:             graphql.ID(u.ID.String()),
		Name:           u.Name,
		Username:       u.Username,
		Email:          u.Email,
		ProfilePicture: u.AvatarURL,
		CreatedAt:      Date{u.CreatedAt},
		UpdatedAt:      Date{u.UpdatedAt},
	}, nil
}

// MapChat requires every member and the admin to be loaded, in member order.
func MapChat(c *models.ResolvedChat) (*Chat, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: chat", ErrUnresolved)
	}

	ids := c.ParticipantIDs()
	if len(ids) != len(c.Participants) {
		return nil, fmt.Errorf("%w: chat %s has %d members but %d loaded", ErrUnresolved, c.ID, len(ids), len(c.Participants))
	}
	out := &Chat{
		ID:            graphql.ID(c.ID.String()),
		IsGroupChat:   c.IsGroup,
		Participants:  make([]*User, len(ids)),
		LastMessageAt: Date{c.LastMessageAt},
		CreatedAt:     Date{c.CreatedAt},
		UpdatedAt:     Date{c.UpdatedAt},
	}
	if c.Name != nil {
		name := *c.Name
		out.ChatName = &name
	}
	for i, id := range ids {
		if c.Participants[i].ID != id {
			return nil, fmt.Errorf("%w: chat %s member %s", ErrUnresolved, c.ID, id)
		}
		out.Participants[i], _ = MapUser(&c.Participants[i])
	}

	if c.AdminID != nil {
		if c.Admin == nil || c.Admin.ID != *c.AdminID {
			return nil, fmt.Errorf("%w: chat %s admin", ErrUnresolved, c.ID)
		}
		out.GroupAdmin, _ = MapUser(c.Admin)
	}
	return out, nil
}

func MapMessage(m *models.ResolvedMessage) (*Message, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: message", ErrUnresolved)
	}
	if m.Sender == nil || m.Sender.ID != m.SenderID {
		return nil, fmt.Errorf("%w: message %s sender", ErrUnresolved, m.ID)
	}
	if m.Chat == nil || m.Chat.ID != m.ChatID {
		return nil, fmt.Errorf("%w: message %s chat", ErrUnresolved, m.ID)
	}

	chat, err := MapChat(m.Chat)
	if err != nil {
		return nil, err
	}
	sender, _ := MapUser(m.Sender)
	return &Message{
		ID:        graphql.ID(m.ID.String()),
		Chat:      chat,
		Sender:    sender,
		Content:   m.Content,
		CreatedAt: Date{m.CreatedAt},
		UpdatedAt: Date{m.UpdatedAt},
	}, nil
}

func mapChats(chats []models.ResolvedChat) ([]*Chat, error) {
	out := make([]*Chat, len(chats))
	for i := range chats {
		c, err := MapChat(&chats[i])
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func mapMessages(messages []models.ResolvedMessage) ([]*Message, error) {
	out := make([]*Message, len(messages))
	for i := range messages {
		m, err := MapMessage(&messages[i])
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

package mongodb

import (
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/chatql/internal/models"
)

// Ids are stored as canonical uuid strings so documents stay readable from
// the mongo shell.

type userDoc struct {
	ID             string    `bson:"_id"`
	Name           string    `bson:"name"`
	Username       string    `bson:"username"`
	Email          string    `bson:"email"`
	Password       string    `bson:"password"`
	ProfilePicture string    `bson:"profilePicture"`
	CreatedAt      time.Time `bson:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt"`
}

type chatDoc struct {
	ID            string    `bson:"_id"`
	ChatName      *string   `bson:"chatName,omitempty"`
	IsGroupChat   bool      `bson:"isGroupChat"`
	Participants  []string  `bson:"participants"`
	GroupAdmin    *string   `bson:"groupAdmin,omitempty"`
	DirectKey     *string   `bson:"directKey,omitempty"`
	LastMessageAt time.Time `bson:"lastMessageAt"`
	CreatedAt     time.Time `bson:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt"`
}

type messageDoc struct {
	ID        string    `bson:"_id"`
	Chat      string    `bson:"chat"`
	Sender    string    `bson:"sender"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func toUserDoc(u *models.User) userDoc {
	return userDoc{
		ID:             u.ID.String(),
		Name:           u.Name,
		Username:       u.Username,
		Email:          u.Email,
		Password:       u.PasswordHash,
		ProfilePicture: u.AvatarURL,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (d userDoc) model() (models.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return models.User{}, err
	}
	return models.User{
		ID:           id,
		Name:         d.Name,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.Password,
		AvatarURL:    d.ProfilePicture,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}, nil
}

func toChatDoc(c *models.Chat) chatDoc {
	ids := c.ParticipantIDs()
	doc := chatDoc{
		ID:            c.ID.String(),
		ChatName:      c.Name,
		IsGroupChat:   c.IsGroup,
		Participants:  make([]string, len(ids)),
		DirectKey:     c.DirectKey,
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	for i, id := range ids {
		doc.Participants[i] = id.String()
	}
	if c.AdminID != nil {
		admin := c.AdminID.String()
		doc.GroupAdmin = &admin
	}
	return doc
}

func (d chatDoc) model() (models.Chat, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return models.Chat{}, err
	}
	c := models.Chat{
		ID:            id,
		Name:          d.ChatName,
		IsGroup:       d.IsGroupChat,
		DirectKey:     d.DirectKey,
		LastMessageAt: d.LastMessageAt,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	participants, err := parseIDs(d.Participants)
	if err != nil {
		return models.Chat{}, err
	}
	c.SetParticipants(participants)
	if d.GroupAdmin != nil {
		admin, err := uuid.Parse(*d.GroupAdmin)
		if err != nil {
			return models.Chat{}, err
		}
		c.AdminID = &admin
	}
	return c, nil
}

func toMessageDoc(m *models.Message) messageDoc {
	return messageDoc{
		ID:        m.ID.String(),
		Chat:      m.ChatID.String(),
		Sender:    m.SenderID.String(),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func (d messageDoc) model() (models.Message, error) {
	ids, err := parseIDs([]string{d.ID, d.Chat, d.Sender})
	if err != nil {
		return models.Message{}, err
	}
	return models.Message{
		ID:        ids[0],
		ChatID:    ids[1],
		SenderID:  ids[2],
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

func parseIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, len(raw))
	for i, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultAvatarURL is used when a user registers without a profile picture.
const DefaultAvatarURL = "https://www.shutterstock.com/image-vector/avatar-gender-neutral-silhouette-vector-600nw-2470054311.jpg"

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name         string    `gorm:"size:30;not null"`
	Username     string    `gorm:"size:30;uniqueIndex;not null"`
	Email        string    `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	AvatarURL    string    `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.AvatarURL == "" {
		u.AvatarURL = DefaultAvatarURL
	}
	return nil
}

// UserUpdate holds the profile fields to change. Nil fields are left untouched.
type UserUpdate struct {
	Name      *string
	Username  *string
	Email     *string
	AvatarURL *string
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Username == nil && u.Email == nil && u.AvatarURL == nil
}

// Differs reports whether applying the update to user would change any field.
func (u UserUpdate) Differs(user *User) bool {
	return (u.Name != nil && *u.Name != user.Name) ||
		(u.Username != nil && *u.Username != user.Username) ||
		(u.Email != nil && *u.Email != user.Email) ||
		(u.AvatarURL != nil && *u.AvatarURL != user.AvatarURL)
}

// Apply copies the set fields onto user.
func (u UserUpdate) Apply(user *User) {
	if u.Name != nil {
		user.Name = *u.Name
	}
	if u.Username != nil {
		user.Username = *u.Username
	}
	if u.Email != nil {
		user.Email = *u.Email
	}
	if u.AvatarURL != nil {
		user.AvatarURL = *u.AvatarURL
	}
}

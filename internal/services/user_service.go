package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/thereayou/chatql/internal/database"
	"github.com/thereayou/chatql/internal/media"
	"github.com/thereayou/chatql/internal/models"
	"github.com/thereayou/chatql/internal/validation"
	"go.uber.org/zap"
)

type ProfileUpdate struct {
	Name     *string     `json:"name" validate:"omitempty,min=2,max=30"`
	Username *string     `json:"username" validate:"omitempty,min=3,max=30"`
	Email    *string     `json:"email" validate:"omitempty,email,max=100"`
	Avatar   *media.File `json:"-"`
}

type UserService struct {
	store Store
	media media.Uploader
	log   *zap.Logger
}

func NewUserService(store Store, uploader media.Uploader, log *zap.Logger) *UserService {
	return &UserService{store: store, media: uploader, log: log}
}

func (s *UserService) Me(ctx context.Context, self uuid.UUID) (*models.User, error) {
	user, err := s.store.GetUser(ctx, self)
	if errors.Is(err, database.ErrNotFound) {
		return nil, NotFound("No user found with provided user id.")
	}
	if err != nil {
		return nil, s.internal("load user", err)
	}
	return user, nil
}

// UpdateProfile applies the given fields to self. At least one field must be
// set and at least one must differ from the stored profile.
func (s *UserService) UpdateProfile(ctx context.Context, self uuid.UUID, upd ProfileUpdate) (*models.User, error) {
	if upd.Name == nil && upd.Username == nil && upd.Email == nil && upd.Avatar == nil {
		return nil, Invalid("At least one field must be provided.")
	}
	if err := checkInput(upd); err != nil {
		return nil, err
	}
	if upd.Avatar != nil {
		if err := media.CheckImage(upd.Avatar); err != nil {
			return nil, Invalid(err.Error(), uploadField("profilePicture", err))
		}
	}

	taken, err := s.store.UserTaken(ctx, deref(upd.Email), deref(upd.Username), self)
	if err != nil {
		return nil, s.internal("check user uniqueness", err)
	}
	if taken {
		return nil, Conflict("User with this email or username already exists.")
	}

	current, err := s.Me(ctx, self)
	if err != nil {
		return nil, err
	}

	change := models.UserUpdate{Name: upd.Name, Username: upd.Username, Email: upd.Email}
	if upd.Avatar == nil && !change.Differs(current) {
		return nil, Invalid("No changes found.")
	}
	if upd.Avatar != nil {
		url, err := s.media.Upload(ctx, upd.Avatar)
		if err != nil {
			s.log.Error("avatar upload failed", zap.Error(err))
			return nil, Upstream(err)
		}
		change.AvatarURL = &url
	}

	user, err := s.store.UpdateUser(ctx, self, change)
	if err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, Conflict("User with this email or username already exists.")
		}
		return nil, s.internal("update user", err)
	}
	return user, nil
}

func (s *UserService) internal(op string, err error) error {
	s.log.Error(op+" failed", zap.Error(err))
	return Internal(err)
}

func uploadField(field string, err error) validation.FieldError {
	return validation.FieldError{Field: field, Tag: "image", Message: err.Error()}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

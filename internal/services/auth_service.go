package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/chatql/internal/database"
	"github.com/thereayou/chatql/internal/media"
	"github.com/thereayou/chatql/internal/models"
	"github.com/thereayou/chatql/pkg/auth"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const invalidCredentials = "Invalid credentials."

// dummyHash is compared against when no user matches, so a miss costs the
// same as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

type RegisterRequest struct {
	Name     string      `json:"name" validate:"min=2,max=30"`
	Username string      `json:"username" validate:"min=3,max=30"`
	Email    string      `json:"email" validate:"required,email,max=100"`
	Password string      `json:"password" validate:"min=6,max=72"`
	Avatar   *media.File `json:"-"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"omitempty,min=3"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token     string
	ExpiresAt time.Time
}

type AuthService struct {
	store   Store
	media   media.Uploader
	tokens  *auth.JWTManager
	revoker auth.Revoker
	log     *zap.Logger
}

func NewAuthService(store Store, uploader media.Uploader, tokens *auth.JWTManager, revoker auth.Revoker, log *zap.Logger) *AuthService {
	if revoker == nil {
		revoker = auth.NoopRevoker{}
	}
	return &AuthService{store: store, media: uploader, tokens: tokens, revoker: revoker, log: log}
}

// Register creates a user and returns its id. No token is issued.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (uuid.UUID, error) {
	if err := checkInput(req); err != nil {
		return uuid.Nil, err
	}
	if req.Avatar != nil {
		if err := media.CheckImage(req.Avatar); err != nil {
			return uuid.Nil, Invalid(err.Error(), uploadField("profilePicture", err))
		}
	}

	if err := s.ensureAvailable(ctx, req.Email, req.Username, uuid.Nil); err != nil {
		return uuid.Nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, s.internal("hash password", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Name:         req.Name,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if req.Avatar != nil {
		url, err := s.media.Upload(ctx, req.Avatar)
		if err != nil {
			s.log.Error("avatar upload failed", zap.Error(err))
			return uuid.Nil, Upstream(err)
		}
		user.AvatarURL = url
	}

	if err := s.store.SaveUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return uuid.Nil, Conflict("User with this email or username already exists.")
		}
		return uuid.Nil, s.internal("save user", err)
	}

	s.log.Info("user registered", zap.Stringer("user_id", user.ID))
	return user.ID, nil
}

// Login looks the user up by username when given, otherwise by email. Every
// mismatch yields the same Unauthorized error.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := checkInput(req); err != nil {
		return nil, err
	}
	if req.Username == "" && req.Email == "" {
		return nil, Invalid("Either username or email must be provided.")
	}

	var (
		user *models.User
		err  error
	)
	if req.Username != "" {
		user, err = s.store.FindUserByUsername(ctx, req.Username)
	} else {
		user, err = s.store.FindUserByEmail(ctx, req.Email)
	}
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, s.internal("find user", err)
	}

	hash := dummyHash
	if user != nil {
		hash = []byte(user.PasswordHash)
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil || user == nil {
		return nil, Unauthorized(invalidCredentials)
	}

	token, exp, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, s.internal("generate token", err)
	}
	return &AuthResponse{Token: token, ExpiresAt: exp}, nil
}

// Logout revokes token for the rest of its life. Failures are logged only;
// the caller clears the cookie regardless.
func (s *AuthService) Logout(ctx context.Context, token string) {
	exp, err := s.tokens.Expiry(token)
	if err != nil {
		return
	}
	if err := s.revoker.Revoke(ctx, token, exp); err != nil {
		s.log.Warn("token revocation failed", zap.Error(err))
	}
}

func (s *AuthService) ensureAvailable(ctx context.Context, email, username string, self uuid.UUID) error {
	taken, err := s.store.UserTaken(ctx, email, username, self)
	if err != nil {
		return s.internal("check user uniqueness", err)
	}
	if taken {
		return Conflict("User with this email or username already exists.")
	}
	return nil
}

func (s *AuthService) internal(op string, err error) error {
	s.log.Error(op+" failed", zap.Error(err))
	return Internal(err)
}

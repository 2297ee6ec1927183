package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/chatql/internal/handlers/dto"
	"github.com/thereayou/chatql/internal/media"
	"github.com/thereayou/chatql/internal/services"
	"github.com/thereayou/chatql/internal/validation"
	"github.com/thereayou/chatql/pkg/auth"
)

type AuthHandler struct {
	auth         *services.AuthService
	cookieSecure bool
}

func NewAuthHandler(authService *services.AuthService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{auth: authService, cookieSecure: cookieSecure}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var form dto.RegisterForm
	if err := c.ShouldBind(&form); err != nil {
		writeError(c, services.Invalid("Invalid request."))
		return
	}

	req := services.RegisterRequest{
		Name:     form.Name,
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
	}

	fh, err := c.FormFile("profilePicture")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	case err != nil:
		writeError(c, services.Invalid("Invalid request."))
		return
	default:
		file, err := media.ReadFile(fh)
		if err != nil {
			writeError(c, services.Invalid(err.Error(), validation.FieldError{Field: "profilePicture", Tag: "image", Message: err.Error()}))
			return
		}
		req.Avatar = file
	}

	id, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.RegisterResponse{
		Success: true,
		Message: "User registered successfully.",
		Data:    dto.RegisterData{ID: id.String()},
	})
}

// Login issues the auth cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, services.Invalid("Invalid request."))
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), services.LoginRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, services.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, dto.LoginResponse{Status: false, Message: err.Error()})
			return
		}
		writeError(c, err)
		return
	}

	h.setCookie(c, resp.Token, resp.ExpiresAt)
	c.JSON(http.StatusOK, dto.LoginResponse{Status: true, Message: "Logged in successfully."})
}

// Logout revokes the current token when there is one and always clears the
// cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := auth.ExtractTokenFromCookie(c.Request); err == nil {
		h.auth.Logout(c.Request.Context(), token)
	}

	h.setCookie(c, "", time.Unix(0, 0))
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully."})
}

func (h *AuthHandler) setCookie(c *gin.Context, token string, expires time.Time) {
	cookie := &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if token == "" {
		cookie.MaxAge = -1
	} else {
		cookie.MaxAge = int(time.Until(expires).Seconds())
	}
	http.SetCookie(c.Writer, cookie)
}

package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/chatql/pkg/auth"
	"go.uber.org/zap"
)

const UserIDKey = "userID"

type userIDKey struct{}

// WithUserID returns a copy of ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserIDFrom returns the user id stored by AuthMiddleware.
func UserIDFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey{}).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// AuthMiddleware requires a valid auth cookie on every path except the
// public ones, which pass through without an identity. The resolved user id
// is put on both the gin context and the request context.
func AuthMiddleware(jwtManager *auth.JWTManager, revoker auth.Revoker, log *zap.Logger, publicPaths ...string) gin.HandlerFunc {
	public := make(map[string]bool, len(publicPaths))
	for _, p := range publicPaths {
		public[p] = true
	}
	if revoker == nil {
		revoker = auth.NoopRevoker{}
	}

	return func(c *gin.Context) {
		if public[c.Request.URL.Path] {
			c.Next()
			return
		}

		token, err := auth.ExtractTokenFromCookie(c.Request)
		if err != nil {
			unauthorized(c)
			return
		}

		userID, err := jwtManager.UserID(token)
		if err != nil {
			unauthorized(c)
			return
		}

		revoked, err := revoker.IsRevoked(c.Request.Context(), token)
		if err != nil {
			log.Error("revocation lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Something went wrong."})
			return
		}
		if revoked {
			unauthorized(c)
			return
		}

		c.Set(UserIDKey, userID)
		c.Request = c.Request.WithContext(WithUserID(c.Request.Context(), userID))
		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized."})
}

package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/chatql/pkg/auth"
	"go.uber.org/zap"
)

type stubRevoker struct {
	revoked string
	err     error
}

func (s stubRevoker) Revoke(context.Context, string, time.Time) error { return nil }

func (s stubRevoker) IsRevoked(_ context.Context, token string) (bool, error) {
	return token == s.revoked, s.err
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	userID := uuid.New()
	valid, _, err := jwtManager.Generate(userID)
	if err != nil {
		t.Fatal(err)
	}
	revokedToken, _, _ := auth.NewJWTManager("test-secret", 2*time.Hour).Generate(userID)
	foreign, _, _ := auth.NewJWTManager("other-secret", time.Hour).Generate(userID)

	tests := []struct {
		name    string
		path    string
		cookie  string
		revoker auth.Revoker
		status  int
		wantID  bool
	}{
		{name: "no cookie", path: "/graphql", status: http.StatusUnauthorized},
		{name: "garbage cookie", path: "/graphql", cookie: "not-a-jwt", status: http.StatusUnauthorized},
		{name: "foreign signature", path: "/graphql", cookie: foreign, status: http.StatusUnauthorized},
		{name: "revoked", path: "/graphql", cookie: revokedToken, revoker: stubRevoker{revoked: revokedToken}, status: http.StatusUnauthorized},
		{name: "revocation store down", path: "/graphql", cookie: valid, revoker: stubRevoker{err: errors.New("redis down")}, status: http.StatusInternalServerError},
		{name: "valid", path: "/graphql", cookie: valid, status: http.StatusOK, wantID: true},
		// Public paths skip the cookie requirement entirely and run the
		// handler once, so an anonymous login request is not rejected here.
		{name: "public without cookie", path: "/auth/login", status: http.StatusOK},
		{name: "public with cookie", path: "/auth/login", cookie: valid, status: http.StatusOK},
		{name: "public prefix is not public", path: "/auth/login/extra", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				calls int
				gotID uuid.UUID
				hasID bool
			)
			r := gin.New()
			r.Use(AuthMiddleware(jwtManager, tt.revoker, zap.NewNop(), "/auth/login"))
			r.NoRoute(func(c *gin.Context) {
				calls++
				gotID, hasID = UserIDFrom(c.Request.Context())
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusOK && calls != 1 {
				t.Errorf("handler ran %d times, want once", calls)
			}
			if tt.status != http.StatusOK && calls != 0 {
				t.Errorf("handler ran after rejection")
			}
			if hasID != tt.wantID || (tt.wantID && gotID != userID) {
				t.Errorf("user id = %v (%v), want %v (%v)", gotID, hasID, userID, tt.wantID)
			}
		})
	}
}

func TestUserIDFromEmptyContext(t *testing.T) {
	if _, ok := UserIDFrom(context.Background()); ok {
		t.Fatal("empty context has a user id")
	}
	if _, ok := UserIDFrom(WithUserID(context.Background(), uuid.Nil)); ok {
		t.Fatal("nil id accepted")
	}
}

func TestRecoveryHidesPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(zap.NewNop()))
	r.GET("/boom", func(*gin.Context) { panic("secret detail") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); body == "" || strings.Contains(body, "secret detail") {
		t.Errorf("body = %q", body)
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop()))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("missing request id header")
	}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "abc" {
		t.Errorf("request id = %q, want abc", got)
	}
}

func TestBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/upload", BodyLimit(16), func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name    string
		body    string
		unsized bool
		status  int
	}{
		{name: "within limit", body: "small", status: http.StatusOK},
		{name: "declared too large", body: strings.Repeat("x", 17), status: http.StatusRequestEntityTooLarge},
		{name: "streamed too large", body: strings.Repeat("x", 64), unsized: true, status: http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(tt.body))
			if tt.unsized {
				req.ContentLength = -1
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

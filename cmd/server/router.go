package main

import (
	"github.com/gin-gonic/gin"
	"github.com/thereayou/chatql/internal/graph"
	"github.com/thereayou/chatql/internal/handlers"
	"github.com/thereayou/chatql/internal/media"
	"github.com/thereayou/chatql/internal/metrics"
	"github.com/thereayou/chatql/internal/middleware"
	"github.com/thereayou/chatql/internal/models"
	"github.com/thereayou/chatql/internal/services"
	ws "github.com/thereayou/chatql/internal/websocket"
	"github.com/thereayou/chatql/pkg/auth"
	"go.uber.org/zap"
)

var publicPaths = []string{"/auth/register", "/auth/login", "/auth/logout", "/healthz", "/metrics"}

type routerDeps struct {
	Store        services.Store
	Uploader     media.Uploader
	Revoker      auth.Revoker
	Tokens       *auth.JWTManager
	Metrics      *metrics.Metrics
	Log          *zap.Logger
	CookieSecure bool
}

func encodeMessage(m *models.ResolvedMessage) (any, error) {
	return graph.MapMessage(m)
}

// newRouter wires services, GraphQL and the hub into one engine. The hub is
// returned unstarted.
func newRouter(d routerDeps) (*gin.Engine, *ws.Hub, error) {
	hub := ws.NewHub(encodeMessage, d.Log, d.Metrics)

	authService := services.NewAuthService(d.Store, d.Uploader, d.Tokens, d.Revoker, d.Log)
	userService := services.NewUserService(d.Store, d.Uploader, d.Log)
	chatService := services.NewChatService(d.Store, d.Uploader, hub, d.Log)

	schema, err := graph.NewSchema(graph.NewResolver(userService, chatService, d.Log))
	if err != nil {
		return nil, nil, err
	}

	r := gin.New()
	r.Use(
		middleware.Recovery(d.Log),
		middleware.RequestLogger(d.Log),
		middleware.Metrics(d.Metrics),
		middleware.AuthMiddleware(d.Tokens, d.Revoker, d.Log, publicPaths...),
	)

	APIEndpoints(r, endpoints{
		auth:      handlers.NewAuthHandler(authService, d.CookieSecure),
		graphql:   graph.NewHandler(schema),
		websocket: handlers.NewWebSocketHandler(hub),
		health:    handlers.Health(d.Store, hub),
		metrics:   gin.WrapH(d.Metrics.Handler()),
	})
	return r, hub, nil
}

type endpoints struct {
	auth      *handlers.AuthHandler
	graphql   *graph.Handler
	websocket *handlers.WebSocketHandler
	health    gin.HandlerFunc
	metrics   gin.HandlerFunc
}

func APIEndpoints(r *gin.Engine, e endpoints) {
	uploadLimit := middleware.BodyLimit(media.MaxRequestSize)

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", uploadLimit, e.auth.Register)
		authGroup.POST("/login", e.auth.Login)
		authGroup.POST("/logout", e.auth.Logout)
	}

	r.POST("/graphql", uploadLimit, e.graphql.Serve)
	r.GET("/ws", e.websocket.HandleWebSocket)

	r.GET("/healthz", e.health)
	r.GET("/metrics", e.metrics)
}

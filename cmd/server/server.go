package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/thereayou/chatql/internal/config"
	"github.com/thereayou/chatql/internal/database"
	"github.com/thereayou/chatql/internal/database/mongodb"
	"github.com/thereayou/chatql/internal/media"
	"github.com/thereayou/chatql/internal/metrics"
	"github.com/thereayou/chatql/internal/services"
	ws "github.com/thereayou/chatql/internal/websocket"
	"github.com/thereayou/chatql/pkg/auth"
	"go.uber.org/zap"
)

type Server struct {
	Router *gin.Engine
	Store  services.Store
	Redis  *redis.Client
	Hub    *ws.Hub

	cfg  *config.Config
	log  *zap.Logger
	http *http.Server
}

// NewServer connects every backing service named in cfg. Anything that fails
// to connect aborts startup.
func NewServer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Server, error) {
	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	opened := backends{store: store}

	var revoker auth.Revoker = auth.NoopRevoker{}
	if cfg.RedisURL != "" {
		opened.redis, err = openRedis(ctx, cfg.RedisURL)
		if err != nil {
			opened.release(log)
			return nil, fmt.Errorf("redis: %w", err)
		}
		revoker = auth.NewRedisRevoker(opened.redis)
	} else {
		log.Warn("REDIS_URL not set, logout will not revoke tokens")
	}

	uploader, err := openUploader(ctx, cfg.Media)
	if err != nil {
		opened.release(log)
		return nil, fmt.Errorf("media: %w", err)
	}

	m := metrics.New()
	router, hub, err := newRouter(routerDeps{
		Store:        store,
		Uploader:     media.WithObserver(media.WithTimeout(uploader, cfg.Media.UploadTimeout), m.ObserveUpload),
		Revoker:      revoker,
		Tokens:       auth.NewJWTManager(cfg.JWTSecret, auth.TokenTTL),
		Metrics:      m,
		Log:          log,
		CookieSecure: cfg.CookieSecure,
	})
	if err != nil {
		opened.release(log)
		return nil, err
	}

	return &Server{
		Router: router,
		Store:  store,
		Redis:  opened.redis,
		Hub:    hub,
		cfg:    cfg,
		log:    log,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests and
// releases the backing services.
func (s *Server) Run(ctx context.Context) error {
	go s.Hub.Run()

	errc := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errc:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.log.Error("http shutdown", zap.Error(err))
	}
	s.Hub.Stop()
	backends{store: s.Store, redis: s.Redis}.release(s.log)

	s.log.Info("server stopped")
	return runErr
}

// backends are the connections NewServer opens before the router exists.
type backends struct {
	store services.Store
	redis *redis.Client
}

// release closes whatever was opened; it is safe on a partial set.
func (b backends) release(log *zap.Logger) {
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			log.Error("redis close", zap.Error(err))
		}
	}
	if b.store != nil {
		if err := b.store.Close(); err != nil {
			log.Error("store close", zap.Error(err))
		}
	}
}

// openStore picks MongoDB for mongodb:// urls and postgres otherwise.
func openStore(ctx context.Context, cfg *config.Config) (services.Store, error) {
	if strings.HasPrefix(cfg.DatabaseURL, "mongodb://") || strings.HasPrefix(cfg.DatabaseURL, "mongodb+srv://") {
		return mongodb.Connect(ctx, cfg.DatabaseURL, cfg.MongoDatabase)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.SetPool(25, 5, 30*time.Minute); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func openRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func openUploader(ctx context.Context, cfg config.MediaConfig) (media.Uploader, error) {
	switch cfg.Driver {
	case config.MediaS3:
		return media.NewS3(ctx, cfg.Region, cfg.Bucket, cfg.Folder, cfg.PublicBaseURL)
	default:
		return media.NewCloudinary(cfg.CloudName, cfg.APIKey, cfg.APISecret, cfg.Folder)
	}
}

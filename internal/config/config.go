// Package config reads process settings from the environment, optionally
// seeded from .env files.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	MediaCloudinary = "cloudinary"
	MediaS3         = "s3"
)

type Config struct {
	Env      string
	LogLevel string
	Port     string

	DatabaseURL   string
	MongoDatabase string
	RedisURL      string

	JWTSecret    string
	CookieSecure bool

	Media MediaConfig

	ShutdownTimeout time.Duration
}

type MediaConfig struct {
	Driver        string
	Folder        string
	UploadTimeout time.Duration

	CloudName string
	APIKey    string
	APISecret string

	Bucket        string
	Region        string
	PublicBaseURL string
}

func (c *Config) Development() bool {
	return c.Env == "development"
}

// Load reads .env.local and .env when present, then the environment. Values
// already in the environment win over the files.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MONGODB_DATABASE", "chatapp")
	v.SetDefault("MEDIA_DRIVER", MediaCloudinary)
	v.SetDefault("MEDIA_FOLDER", "graphql-chatapp")
	v.SetDefault("MEDIA_UPLOAD_TIMEOUT", 30*time.Second)
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("SHUTDOWN_TIMEOUT", 15*time.Second)
	return v
}

// FromViper builds a Config and reports every missing required value at once.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:             v.GetString("APP_ENV"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		Port:            v.GetString("PORT"),
		DatabaseURL:     v.GetString("DATABASE_URL"),
		MongoDatabase:   v.GetString("MONGODB_DATABASE"),
		RedisURL:        v.GetString("REDIS_URL"),
		JWTSecret:       v.GetString("JWT_SECRET_KEY"),
		CookieSecure:    v.GetBool("COOKIE_SECURE"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		Media: MediaConfig{
			Driver:        strings.ToLower(v.GetString("MEDIA_DRIVER")),
			Folder:        v.GetString("MEDIA_FOLDER"),
			UploadTimeout: v.GetDuration("MEDIA_UPLOAD_TIMEOUT"),
			CloudName:     v.GetString("CLOUDINARY_CLOUD_NAME"),
			APIKey:        v.GetString("CLOUDINARY_API_KEY"),
			APISecret:     v.GetString("CLOUDINARY_API_SECRET"),
			Bucket:        v.GetString("S3_BUCKET"),
			Region:        v.GetString("AWS_REGION"),
			PublicBaseURL: v.GetString("S3_PUBLIC_BASE_URL"),
		},
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = v.GetString("MONGODB_URI")
	}

	required := map[string]string{
		"DATABASE_URL":   cfg.DatabaseURL,
		"JWT_SECRET_KEY": cfg.JWTSecret,
		"PORT":           cfg.Port,
	}
	switch cfg.Media.Driver {
	case MediaCloudinary:
		required["CLOUDINARY_CLOUD_NAME"] = cfg.Media.CloudName
		required["CLOUDINARY_API_KEY"] = cfg.Media.APIKey
		required["CLOUDINARY_API_SECRET"] = cfg.Media.APISecret
	case MediaS3:
		required["S3_BUCKET"] = cfg.Media.Bucket
		required["AWS_REGION"] = cfg.Media.Region
	default:
		return nil, fmt.Errorf("config: unknown MEDIA_DRIVER %q", cfg.Media.Driver)
	}

	var missing []string
	for key, val := range required {
		if val == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("config: missing required %s", strings.Join(missing, ", "))
	}

	if cfg.ShutdownTimeout <= 0 {
		return nil, errors.New("config: SHUTDOWN_TIMEOUT must be positive")
	}
	return cfg, nil
}

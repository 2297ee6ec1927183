package config

import (
	"strings"
	"testing"
	"time"
)

func setBase(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/chat")
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("PORT", "8080")
	t.Setenv("CLOUDINARY_CLOUD_NAME", "demo")
	t.Setenv("CLOUDINARY_API_KEY", "key")
	t.Setenv("CLOUDINARY_API_SECRET", "shh")
}

func TestLoadDefaults(t *testing.T) {
	setBase(t)

	cfg, err := FromViper(newViper())
	if err != nil {
		t.Fatalf("FromViper: %v", err)
	}
	if cfg.Port != "8080" || cfg.JWTSecret != "secret" {
		t.Errorf("got %+v", cfg)
	}
	if cfg.Media.Driver != MediaCloudinary || cfg.Media.UploadTimeout != 30*time.Second {
		t.Errorf("media = %+v", cfg.Media)
	}
	if cfg.MongoDatabase != "chatapp" || cfg.ShutdownTimeout != 15*time.Second {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.Development() {
		t.Error("expected production by default")
	}
}

func TestLoadReportsAllMissing(t *testing.T) {
	t.Setenv("PORT", "8080")

	_, err := FromViper(newViper())
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, key := range []string{"DATABASE_URL", "JWT_SECRET_KEY", "CLOUDINARY_CLOUD_NAME", "CLOUDINARY_API_KEY", "CLOUDINARY_API_SECRET"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not name %s", err, key)
		}
	}
	if strings.Contains(err.Error(), "PORT") {
		t.Errorf("error %q names PORT, which is set", err)
	}
}

func TestLoadS3(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("PORT", "8080")
	t.Setenv("MEDIA_DRIVER", "S3")
	t.Setenv("S3_BUCKET", "chat-media")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("MEDIA_UPLOAD_TIMEOUT", "5s")

	cfg, err := FromViper(newViper())
	if err != nil {
		t.Fatalf("FromViper: %v", err)
	}
	if cfg.DatabaseURL != "mongodb://localhost:27017" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.Media.Driver != MediaS3 || cfg.Media.Bucket != "chat-media" || cfg.Media.UploadTimeout != 5*time.Second {
		t.Errorf("media = %+v", cfg.Media)
	}
}

func TestLoadUnknownDriver(t *testing.T) {
	setBase(t)
	t.Setenv("MEDIA_DRIVER", "ftp")

	if _, err := FromViper(newViper()); err == nil {
		t.Fatal("expected an error for an unknown media driver")
	}
}

package database

import (
	"context"
	"errors"
	"time"

	"github.com/thereayou/chatql/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens a postgres database from dsn and migrates the schema.
func Connect(dsn string) (*Database, error) {
	if dsn == "" {
		return nil, errors.New("database dsn is empty")
	}
	return Open(postgres.Open(dsn))
}

// Open migrates and wraps any gorm dialector.
func Open(dialector gorm.Dialector) (*Database, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(&models.User{}, &models.Chat{}, &models.ChatMember{}, &models.Message{})
	if err != nil {
		return nil, err
	}

	return NewDatabase(db), nil
}

// SetPool sizes the underlying connection pool. A zero lifetime keeps
// connections forever.
func (d *Database) SetPool(maxOpen, maxIdle int, lifetime time.Duration) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(lifetime)
	return nil
}

func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

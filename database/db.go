package database

import (
	"fmt"

	"marketplace-order-service/config"
	"marketplace-order-service/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Connect opens the postgres connection. TranslateError is required so the
// unique index on external_transaction_id surfaces as gorm.ErrDuplicatedKey,
// which is the idempotency gate's enforcement point.
func Connect(cfg *config.Config) error {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		cfg.PostgresHost, cfg.PostgresUser, cfg.PostgresPassword,
		cfg.PostgresDB, cfg.PostgresPort, cfg.PostgresSSLMode, cfg.PostgresTimeZone,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}

	DB = db
	return nil
}

// Migrate runs auto-migration for all pipeline models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Order{},
		&models.OrderLineItem{},
		&models.FailedEvent{},
		&models.SellerNotification{},
	)
}

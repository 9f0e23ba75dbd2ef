package database

import (
	"fmt"

	"partnerhub/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the postgres pool. TranslateError maps unique violations to
// gorm.ErrDuplicatedKey so the store can report them without driver codes.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("Connected to database")
	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	log.Info("Starting auto-migration...")

	if err := db.AutoMigrate(
		&models.Agent{},
		&models.Affiliate{},
		&models.Player{},
		&models.Commission{},
		&models.Referral{},
		&models.Withdrawal{},
		&models.LedgerEntry{},
	); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	log.Info("Auto migration completed")
	return nil
}

package database

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fieldserve/pingate/internal/config"
)

// Open connects to Postgres. The gate is a small, mostly-idle service, so the
// pool is kept tight rather than tuned for throughput.
func Open(cfg *config.Config) (*gorm.DB, error) {
	logMode := logger.Warn
	if strings.EqualFold(cfg.Env, "production") {
		logMode = logger.Error
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access sql pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}

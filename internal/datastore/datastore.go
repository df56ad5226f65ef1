// Package datastore opens the database connection and runs schema migration.
package datastore

import (
	"fmt"

	"github.com/opsdeck/opsdeck-go/internal/conf"
	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

// Open connects to the configured database and migrates the schema.
func Open(settings *conf.DatabaseSettings) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch settings.Type {
	case "sqlite":
		dialector = sqlite.Open(settings.Path + "?_foreign_keys=ON")
	case "mysql":
		dialector = mysql.Open(settings.DSN)
	default:
		return nil, fmt.Errorf("unsupported database type %q", settings.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the schema for all engine tables.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&entities.AlertRule{},
		&entities.AlertCondition{},
		&entities.AlertAction{},
		&entities.TriggerEvent{},
		&entities.NotificationRecord{},
		&entities.ThrottleWindow{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

package database

import (
	"fmt"
	"time"

	"fareast/internal/models"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres" // PostgreSQL driver
	_ "github.com/jinzhu/gorm/dialects/sqlite"   // SQLite driver
)

// Config describes where orders and the menu live
type Config struct {
	Driver string
	DSN    string
	Debug  bool
}

// Open connects to the database and configures the connection pool
func Open(cfg Config) (*gorm.DB, error) {
	db, err := gorm.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.LogMode(cfg.Debug)

	if cfg.Driver == "sqlite3" {
		// sqlite serializes writers anyway; one connection avoids SQLITE_BUSY
		db.DB().SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	} else {
		db.DB().SetMaxIdleConns(10)
		db.DB().SetMaxOpenConns(100)
	}
	db.DB().SetConnMaxLifetime(time.Hour)

	return db, nil
}

const legacyOrderNumberIndex = "uix_orders_order_number"

// Migrate creates or updates the menu and order tables
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.MenuItem{},
		&models.Order{},
		&models.OrderLineItem{},
	).Error; err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	// order numbers restart daily; older schemas made them unique
	if db.Dialect().HasIndex("orders", legacyOrderNumberIndex) {
		if err := db.Model(&models.Order{}).RemoveIndex(legacyOrderNumberIndex).Error; err != nil {
			return fmt.Errorf("failed to drop %s: %w", legacyOrderNumberIndex, err)
		}
	}
	return nil
}

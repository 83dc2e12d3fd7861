package db

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hotel-booking-backend/config"
	"hotel-booking-backend/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel(cfg.LogLevel)),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	// sqlite has a single writer and no row locks. Transactions queue for the
	// one connection instead of failing with "database is locked".
	if db.Dialector.Name() == "sqlite" {
		if cfg.MaxOpenConns > 1 {
			log.Printf("database.max_open_conns=%d ignored for sqlite; using 1", cfg.MaxOpenConns)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.EnableExclusionConstraint && db.Dialector.Name() == "postgres" {
		log.Println("Applying booking overlap exclusion constraint...")
		if err := applyExclusionConstraint(db); err != nil {
			log.Printf("Warning: failed to apply exclusion constraint: %v. Continuing without it.", err)
		}
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	log.Println("Running database migrations...")
	if err := db.AutoMigrate(
		&model.Hotel{},
		&model.Amenity{},
		&model.RoomType{},
		&model.Room{},
		&model.CalendarEntry{},
		&model.RateRule{},
		&model.Booking{},
		&model.BookingGuest{},
		&model.Payment{},
		&model.PushSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

// applyExclusionConstraint makes postgres itself reject two live bookings whose
// stays overlap on the same room. Stays are half-open: [check_in, check_out).
func applyExclusionConstraint(db *gorm.DB) error {
	ddls := []string{
		"CREATE EXTENSION IF NOT EXISTS btree_gist;",
		"ALTER TABLE bookings DROP CONSTRAINT IF EXISTS bookings_no_overlap;",
		"ALTER TABLE bookings ADD CONSTRAINT bookings_no_overlap EXCLUDE USING gist (" +
			"room_id WITH =, tstzrange(check_in_date, check_out_date, '[)') WITH &&" +
			") WHERE (status NOT IN ('cancelled', 'no_show') AND deleted_at IS NULL);",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}

func logLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

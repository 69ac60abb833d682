package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	config "github.com/anjiri1684/teacherin/configs"
	"github.com/anjiri1684/teacherin/models"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectDB opens the postgres connection described by cfg.
func ConnectDB(cfg config.DatabaseConfig, log *zerolog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), Options())
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	log.Info().Msg("database connected")
	return db, nil
}

// Options is shared by the postgres connection and the sqlite test databases.
func Options() *gorm.Config {
	return &gorm.Config{
		PrepareStmt:                              false,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Teacher{},
		&models.Skill{},
		&models.Favorite{},
		&models.AvailabilitySlot{},
		&models.Booking{},
		&models.Session{},
		&models.Payment{},
		&models.Review{},
		&models.Material{},
		&models.Order{},
		&models.Payout{},
		&models.Notification{},
		&models.Setting{},
	)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	// One live booking per teacher and time range. Cancelled and refunded
	// rows stay for history and must not block rebooking the slot.
	err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_booking_teacher_time
		ON bookings (teacher_id, start_time, end_time)
		WHERE status NOT IN ('CANCELLED', 'REFUNDED')`).Error
	if err != nil {
		return fmt.Errorf("create booking index: %w", err)
	}
	return nil
}

func SeedAdmin(db *gorm.DB, cfg config.AdminConfig, log *zerolog.Logger) error {
	if cfg.Email == "" || cfg.Password == "" {
		log.Warn().Msg("admin credentials not configured, skipping admin seed")
		return nil
	}

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", cfg.Email).Count(&count).Error; err != nil {
		return fmt.Errorf("check admin user: %w", err)
	}
	if count > 0 {
		log.Info().Msg("admin user already exists")
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	adminUser := models.User{
		FullName: cfg.FullName,
		Email:    cfg.Email,
		Password: string(hashedPassword),
		Role:     models.RoleAdmin,
	}
	if err := db.Create(&adminUser).Error; err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}

	log.Info().Str("email", cfg.Email).Msg("admin user seeded")
	return nil
}

// IsUniqueViolation reports whether err came from a unique constraint.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

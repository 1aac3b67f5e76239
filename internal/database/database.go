package database

import (
	"fmt"

	"github.com/planora/backend/internal/config"
	"github.com/planora/backend/internal/models"
	"github.com/planora/backend/pkg/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := seedAdminUser(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the schema. Exported so tests can migrate an
// in-memory database without going through Connect.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Event{},
		&models.Invitation{},
		&models.Poll{},
		&models.PollOption{},
		&models.Vote{},
		&models.Rsvp{},
		&models.Comment{},
		&models.Like{},
		&models.Conversation{},
		&models.Message{},
		&models.Activity{},
		&models.Notification{},
	); err != nil {
		return err
	}

	if db.Dialector.Name() != "postgres" {
		return nil
	}

	constraint := `
DO $$
BEGIN
  IF NOT EXISTS (
    SELECT 1
    FROM pg_constraint
    WHERE conname = 'vote_voter_check'
  ) THEN
    ALTER TABLE votes
    ADD CONSTRAINT vote_voter_check
    CHECK (
      (user_id IS NOT NULL AND invitation_id IS NULL)
      OR
      (user_id IS NULL AND invitation_id IS NOT NULL)
    );
  END IF;
END $$;`

	return db.Exec(constraint).Error
}

func seedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword("admin123")
	if err != nil {
		return err
	}

	admin := models.User{
		Email:        "admin@planora.local",
		PasswordHash: hash,
		Name:         "System Admin",
		Role:         models.UserRoleAdmin,
		IsVerified:   true,
	}

	return db.Create(&admin).Error
}

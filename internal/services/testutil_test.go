package services

import (
	"database/sql/driver"
	"sync"
	"testing"
	"time"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/planora/backend/internal/models"
	"github.com/planora/backend/pkg/logger"
	"gorm.io/gorm"
)

var testSetupOnce sync.Once

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testSetupOnce.Do(func() {
		gosqlite.MustRegisterScalarFunction("NOW", 0, func(ctx *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			return time.Now().UTC(), nil
		})
		logger.Init()
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	err = db.AutoMigrate(
		&models.User{},
		&models.Event{},
		&models.Invitation{},
		&models.Activity{},
		&models.Notification{},
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	return db
}

func createUser(t *testing.T, db *gorm.DB, name, email string) *models.User {
	t.Helper()

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: "irrelevant",
		Role:         models.UserRoleUser,
		IsVerified:   true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating user: %v", err)
	}
	return user
}

func createEvent(t *testing.T, db *gorm.DB, organizer *models.User, title string) *models.Event {
	t.Helper()

	event := &models.Event{
		Title:       title,
		EventDate:   time.Now().UTC().AddDate(0, 1, 0),
		EventTime:   "20:00",
		OrganizerID: organizer.ID,
	}
	if err := db.Create(event).Error; err != nil {
		t.Fatalf("failed creating event: %v", err)
	}
	return event
}

func uuidPtr(id uuid.UUID) *uuid.UUID {
	return &id
}

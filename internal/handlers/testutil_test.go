package handlers

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/planora/backend/internal/config"
	"github.com/planora/backend/internal/middleware"
	"github.com/planora/backend/internal/models"
	"github.com/planora/backend/internal/services"
	"github.com/planora/backend/pkg/logger"
	"github.com/planora/backend/pkg/utils"
	"gorm.io/gorm"
)

type testEnv struct {
	app           *fiber.App
	db            *gorm.DB
	activity      *services.ActivityService
	notifications *services.NotificationService
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		gosqlite.MustRegisterScalarFunction("NOW", 0, func(ctx *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			return time.Now().UTC(), nil
		})
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
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
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	notificationService := services.NewNotificationService(db)
	activityService := services.NewActivityService(db, notificationService)
	mailService := services.NewMailService(config.SMTPConfig{}, "http://localhost:3000")

	authHandler := NewAuthHandler(db, mailService, nil)
	usersHandler := NewUsersHandler(db)
	eventsHandler := NewEventsHandler(db, activityService, nil)
	invitationsHandler := NewInvitationsHandler(db, activityService, notificationService, mailService)
	pollsHandler := NewPollsHandler(db, activityService)
	messagesHandler := NewMessagesHandler(db, notificationService)
	activitiesHandler := NewActivitiesHandler(db, activityService, notificationService)
	notificationsHandler := NewNotificationsHandler(db, notificationService)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: 20 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS("http://localhost:3000"))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	api.Get("/version", GetVersion)

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/verify", authHandler.Verify)
	authRoutes.Post("/resend-code", authHandler.ResendCode)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Post("/logout", authMiddleware.RequireAuth, authHandler.Logout)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)
	authRoutes.Put("/me", authMiddleware.RequireAuth, authHandler.UpdateMe)
	authRoutes.Put("/password", authMiddleware.RequireAuth, authHandler.ChangePassword)
	authRoutes.Post("/me/avatar", authMiddleware.RequireAuth, authHandler.UploadAvatar)

	api.Get("/avatars/:id", authMiddleware.OptionalAuth, authHandler.GetAvatar)

	api.Get("/users/search", authMiddleware.RequireAuth, usersHandler.Search)

	userRoutes := api.Group("/users", authMiddleware.RequireAuth, middleware.AdminOnly)
	userRoutes.Get("/", usersHandler.List)
	userRoutes.Get("/:id", usersHandler.Get)
	userRoutes.Put("/:id", usersHandler.Update)
	userRoutes.Delete("/:id", usersHandler.Delete)

	publicEventRoutes := api.Group("/public/events", authMiddleware.OptionalAuth)
	publicEventRoutes.Get("/", eventsHandler.ListPublic)
	publicEventRoutes.Get("/:id", eventsHandler.Get)

	eventRoutes := api.Group("/events", authMiddleware.RequireAuth)
	eventRoutes.Post("/", eventsHandler.Create)
	eventRoutes.Get("/", eventsHandler.List)
	eventRoutes.Get("/:id", eventsHandler.Get)
	eventRoutes.Put("/:id", eventsHandler.Update)
	eventRoutes.Delete("/:id", eventsHandler.Delete)
	eventRoutes.Put("/:id/share", eventsHandler.ToggleShare)
	eventRoutes.Post("/:id/image", eventsHandler.UploadImage)
	eventRoutes.Get("/:id/image", eventsHandler.GetImage)
	eventRoutes.Post("/:id/like", eventsHandler.ToggleLike)
	eventRoutes.Get("/:id/comments", eventsHandler.ListComments)
	eventRoutes.Post("/:id/comments", eventsHandler.PostComment)
	eventRoutes.Post("/:id/join", eventsHandler.Join)
	eventRoutes.Post("/:id/rsvp", eventsHandler.Rsvp)
	eventRoutes.Get("/:id/guests", invitationsHandler.ListGuests)
	eventRoutes.Post("/:id/guests", invitationsHandler.AddGuest)
	eventRoutes.Delete("/:id/guests/:guestId", invitationsHandler.DeleteGuest)
	eventRoutes.Get("/:id/polls", pollsHandler.List)
	eventRoutes.Post("/:id/polls", pollsHandler.Create)

	invitationRoutes := api.Group("/invitations")
	invitationRoutes.Post("/", authMiddleware.RequireAuth, invitationsHandler.Send)
	invitationRoutes.Get("/mine", authMiddleware.RequireAuth, invitationsHandler.ListMine)
	invitationRoutes.Get("/token/:token", invitationsHandler.GetByToken)
	invitationRoutes.Post("/:token/confirm", authMiddleware.OptionalAuth, invitationsHandler.Confirm)

	pollRoutes := api.Group("/polls")
	pollRoutes.Put("/:id", authMiddleware.RequireAuth, pollsHandler.Update)
	pollRoutes.Delete("/:id", authMiddleware.RequireAuth, pollsHandler.Delete)
	pollRoutes.Post("/:id/options/:optionId/vote", authMiddleware.OptionalAuth, pollsHandler.Vote)
	pollRoutes.Post("/:id/options/:optionId/unvote", authMiddleware.OptionalAuth, pollsHandler.Unvote)

	conversationRoutes := api.Group("/conversations", authMiddleware.RequireAuth)
	conversationRoutes.Post("/", messagesHandler.CreateConversation)
	conversationRoutes.Get("/", messagesHandler.ListConversations)
	conversationRoutes.Get("/:id/messages", messagesHandler.ListMessages)
	conversationRoutes.Post("/:id/messages", messagesHandler.SendMessage)

	activityRoutes := api.Group("/activities", authMiddleware.RequireAuth)
	activityRoutes.Get("/", activitiesHandler.List)
	activityRoutes.Post("/mark-all-read", activitiesHandler.MarkAllRead)

	notificationRoutes := api.Group("/notifications", authMiddleware.RequireAuth)
	notificationRoutes.Get("/", notificationsHandler.List)
	notificationRoutes.Get("/unread-counts", notificationsHandler.UnreadCounts)
	notificationRoutes.Post("/mark-as-read", notificationsHandler.MarkAllRead)

	return &testEnv{
		app:           app,
		db:            db,
		activity:      activityService,
		notifications: notificationService,
	}
}

func createTestUser(t *testing.T, db *gorm.DB, name, email, password string, role models.UserRole) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsVerified:   true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

func createTestEvent(t *testing.T, db *gorm.DB, organizer *models.User, title string) *models.Event {
	t.Helper()

	event := &models.Event{
		Title:       title,
		EventDate:   time.Now().UTC().AddDate(0, 1, 0),
		EventTime:   "18:30",
		OrganizerID: organizer.ID,
	}
	if err := db.Create(event).Error; err != nil {
		t.Fatalf("failed creating test event: %v", err)
	}
	event.Organizer = *organizer
	return event
}

func logEntryCreateEvent(actor *models.User, event *models.Event) services.LogEntry {
	return services.LogEntry{
		Action:  models.ActionCreateEvent,
		ActorID: &actor.ID,
		EventID: &event.ID,
	}
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q", expected, got)
	}
}

func envelopeData(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object in envelope, got %+v", body)
	}
	return data
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/planora/backend/internal/config"
	"github.com/planora/backend/internal/database"
	"github.com/planora/backend/internal/handlers"
	"github.com/planora/backend/internal/middleware"
	"github.com/planora/backend/internal/services"
	"github.com/planora/backend/internal/storage"
	"github.com/planora/backend/pkg/logger"
	"github.com/planora/backend/pkg/utils"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	imageStore, err := storage.NewImageStore(cfg.MinIO)
	if err != nil {
		log.Fatalf("minio initialization failed: %v", err)
	}
	if err := imageStore.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("failed ensuring minio bucket: %v", err)
	}

	notificationService := services.NewNotificationService(db)
	activityService := services.NewActivityService(db, notificationService)
	mailService := services.NewMailService(cfg.SMTP, cfg.Server.FrontendURL)

	authHandler := handlers.NewAuthHandler(db, mailService, imageStore)
	usersHandler := handlers.NewUsersHandler(db)
	eventsHandler := handlers.NewEventsHandler(db, activityService, imageStore)
	invitationsHandler := handlers.NewInvitationsHandler(db, activityService, notificationService, mailService)
	pollsHandler := handlers.NewPollsHandler(db, activityService)
	messagesHandler := handlers.NewMessagesHandler(db, notificationService)
	activitiesHandler := handlers.NewActivitiesHandler(db, activityService, notificationService)
	notificationsHandler := handlers.NewNotificationsHandler(db, notificationService)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: 20 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.FrontendURL))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	api.Get("/version", handlers.GetVersion)

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
	publicEventRoutes.Get("/:id/image", eventsHandler.GetImage)

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

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}

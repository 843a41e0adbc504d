package main

import (
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/bookclubhq/bookclub/pkg/bookclub/auth"
	"github.com/bookclubhq/bookclub/pkg/bookclub/clubs"
	"github.com/bookclubhq/bookclub/pkg/bookclub/config"
	"github.com/bookclubhq/bookclub/pkg/bookclub/database"
	"github.com/bookclubhq/bookclub/pkg/bookclub/events"
	"github.com/bookclubhq/bookclub/pkg/bookclub/models"
	"github.com/bookclubhq/bookclub/pkg/bookclub/notifications"
)

// @title Bookclub API
// @version 1.0
// @description A community platform for book clubs: memberships, join requests, events.

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token. Format: "Bearer {token}"

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err == nil {
		log.Info("loaded configuration from .env")
	}
	cfg := config.Load()

	db, err := database.Connect(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}

	if err := models.AutoMigrate(db); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}
	log.Info("database migrations completed")

	sink := notifications.NewSink(cfg.AMQPURL, cfg.AMQPExchange, log)
	defer sink.Close()

	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		authHandler := auth.NewHandler(db)
		authHandler.RegisterRoutes(api.Group("/auth"))

		protected := api.Group("", auth.AuthMiddleware())

		// Club, membership, join request and ownership routes
		clubsHandler := clubs.NewHandler(db, sink)
		clubsGroup := protected.Group("/clubs")
		clubsHandler.RegisterRoutes(clubsGroup)
		clubsHandler.RegisterMemberRoutes(clubsGroup)
		clubsHandler.RegisterRequestRoutes(clubsGroup)

		// Event routes, both club-scoped and event-scoped
		eventsHandler := events.NewHandler(db, sink)
		eventsHandler.RegisterClubRoutes(clubsGroup)
		eventsHandler.RegisterRoutes(protected.Group("/events"))
	}

	log.WithField("port", cfg.Port).Info("starting bookclub server")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

package api

import (
	"strings"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/medtrack-app/medtrack/internal/metrics"
)

func (s *Server) setupRoutes() {
	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(s.config.Security.AllowOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	s.app.Use(s.rateLimitMiddleware())

	s.app.Get("/api/health", s.handleHealth)
	s.app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := s.app.Group("/api")

	api.Post("/auth/login", s.handleLogin)

	protected := api.Use(s.authMiddleware())

	protected.Get("/medications", s.handleListMedications)
	protected.Post("/medications", s.handleCreateMedication)
	protected.Get("/medications/:id", s.handleGetMedication)
	protected.Put("/medications/:id", s.handleUpdateMedication)
	protected.Delete("/medications/:id", s.handleDeleteMedication)
	protected.Post("/medications/:id/take", s.handleTake)
	protected.Get("/medications/:id/stock", s.handleStock)

	protected.Get("/schedule", s.handleSchedule)
	protected.Get("/notifications", s.handleNotifications)

	protected.Get("/history", s.handleHistory)
	protected.Get("/history/today", s.handleHistoryToday)

	s.app.Get("/ws", websocket.New(s.feed.handle))
}

// Package api exposes the medication tracker over HTTP.
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/medtrack-app/medtrack/internal/config"
	"github.com/medtrack-app/medtrack/internal/history"
	"github.com/medtrack-app/medtrack/internal/medication"
	"github.com/medtrack-app/medtrack/internal/notify"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Server handles the HTTP API and the WebSocket notification feed
type Server struct {
	app     *fiber.App
	config  *config.Config
	store   *medication.Store
	history *history.Store
	manager *notify.Manager
	logger  *zap.Logger
	limiter *rate.Limiter
	feed    *Feed
}

// New creates a new API server. historyStore may be nil when intake history
// is disabled.
func New(cfg *config.Config, store *medication.Store, historyStore *history.Store, manager *notify.Manager, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	})

	rpm := cfg.Server.RateRPM
	if rpm <= 0 {
		rpm = 120
	}
	burst := cfg.Server.RateBurst
	if burst <= 0 {
		burst = 30
	}

	s := &Server{
		app:     app,
		config:  cfg,
		store:   store,
		history: historyStore,
		manager: manager,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst),
		feed:    NewFeed(logger),
	}

	s.setupRoutes()
	return s
}

// Feed returns the WebSocket notification feed so it can be attached to the
// notifier as a delivery sink.
func (s *Server) NotificationFeed() *Feed {
	return s.feed
}

// Start starts the server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Address, s.config.Server.Port)
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(ctx)
}

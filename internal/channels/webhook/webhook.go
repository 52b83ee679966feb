// Package webhook delivers fired notifications as JSON POSTs to a
// user-configured endpoint.
package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/medtrack-app/medtrack/internal/notify"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Config holds webhook delivery configuration
type Config struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Sink posts notifications to an HTTP endpoint behind a circuit breaker, so
// a dead endpoint cannot stall the delivery path on every fire.
type Sink struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	logger  *zap.Logger
	enabled bool
}

// NewSink creates a new webhook sink
func NewSink(cfg Config, logger *zap.Logger) *Sink {
	if !cfg.Enabled || cfg.URL == "" {
		return &Sink{enabled: false}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "webhook",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Webhook breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Sink{
		url:     cfg.URL,
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
		logger:  logger,
		enabled: true,
	}
}

func (s *Sink) Name() string { return "webhook" }

// Deliver posts the notification as JSON. Failures count against the
// breaker; while the breaker is open deliveries fail fast.
func (s *Sink) Deliver(n notify.Notification) error {
	if !s.enabled {
		return nil
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	_, err = s.breaker.Execute(func() (*http.Response, error) {
		resp, err := s.client.Post(s.url, "application/json", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("webhook returned %s", resp.Status)
		}
		return resp, nil
	})
	return err
}

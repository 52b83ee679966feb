package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/medtrack-app/medtrack/internal/history"
	"github.com/medtrack-app/medtrack/internal/medication"
	"go.uber.org/zap"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"version":   "0.1.0",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	if s.config.Security.AdminPassword != "" && req.Password != s.config.Security.AdminPassword {
		return c.Status(401).JSON(fiber.Map{"error": "invalid password"})
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "default",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(7 * 24 * time.Hour).Unix(),
	})

	tokenString, err := token.SignedString([]byte(s.config.Security.JWTSecret))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to generate token"})
	}

	return c.JSON(fiber.Map{"token": tokenString})
}

func (s *Server) handleListMedications(c *fiber.Ctx) error {
	return c.JSON(s.store.List())
}

func (s *Server) handleCreateMedication(c *fiber.Ctx) error {
	var in medication.Input
	if err := c.BodyParser(&in); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}
	if err := in.Validate(); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	med := s.store.Add(in)
	return c.Status(201).JSON(med)
}

func (s *Server) handleGetMedication(c *fiber.Ctx) error {
	med, ok := s.store.Get(c.Params("id"))
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "medication not found"})
	}
	return c.JSON(med)
}

// handleUpdateMedication answers 204 even when the id does not exist. The
// update of an absent record is a deliberate no-op, not an error.
func (s *Server) handleUpdateMedication(c *fiber.Ctx) error {
	var in medication.Input
	if err := c.BodyParser(&in); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}
	if err := in.Validate(); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	id := c.Params("id")
	s.store.Update(id, medication.Medication{
		ID:            id,
		Name:          in.Name,
		Dosage:        in.Dosage,
		Frequency:     in.Frequency,
		AmountPerDose: in.AmountPerDose,
		TotalAmount:   in.TotalAmount,
		Times:         in.Times,
		Notes:         in.Notes,
	})
	return c.SendStatus(204)
}

func (s *Server) handleDeleteMedication(c *fiber.Ctx) error {
	s.store.Delete(c.Params("id"))
	return c.SendStatus(204)
}

func (s *Server) handleTake(c *fiber.Ctx) error {
	med, err := s.store.Take(c.Params("id"))
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "medication not found"})
	}

	if s.history != nil {
		_, err := s.history.Record(history.IntakeLog{
			MedicationID: med.ID,
			Name:         med.Name,
			Dosage:       med.Dosage,
			Amount:       med.AmountPerDose,
		})
		if err != nil {
			s.logger.Error("Failed to record intake", zap.String("medication_id", med.ID), zap.Error(err))
		}
	}

	days, err := medication.DaysRemaining(med.TotalAmount, med.AmountPerDose, med.Frequency)
	if err != nil {
		s.logger.Warn("Cannot estimate stock after take", zap.String("medication_id", med.ID), zap.Error(err))
	}

	return c.JSON(takeResponse{
		Medication:    med,
		DaysRemaining: days,
		LowStock:      err == nil && medication.IsLowStock(days),
	})
}

func (s *Server) handleStock(c *fiber.Ctx) error {
	med, ok := s.store.Get(c.Params("id"))
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "medication not found"})
	}

	days, err := medication.DaysRemaining(med.TotalAmount, med.AmountPerDose, med.Frequency)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(stockResponse{
		MedicationID:  med.ID,
		TotalAmount:   med.TotalAmount,
		DaysRemaining: days,
		LowStock:      medication.IsLowStock(days),
	})
}

// handleSchedule evaluates due and upcoming doses, by default against the
// current time. An at=RFC3339 query pins the evaluation instant for clients
// showing a different moment of the day.
func (s *Server) handleSchedule(c *fiber.Ctx) error {
	now := time.Now()
	if at := c.Query("at"); at != "" {
		parsed, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid at parameter, expected RFC3339"})
		}
		// Keep the wall-clock fields as sent; dose times are local times.
		now = parsed
	}

	meds := s.store.List()
	return c.JSON(scheduleResponse{
		DueNow:   medication.DueNow(now, meds),
		Upcoming: medication.Upcoming(now, meds),
	})
}

func (s *Server) handleNotifications(c *fiber.Ctx) error {
	return c.JSON(notificationsResponse{
		Permission: s.manager.Permitted(),
		Scheduled:  s.manager.Scheduled(),
	})
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	if s.history == nil {
		return c.JSON([]history.IntakeLog{})
	}

	var start, end time.Time
	if from := c.Query("from"); from != "" {
		parsed, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid from parameter, expected RFC3339"})
		}
		start = parsed
	}
	if to := c.Query("to"); to != "" {
		parsed, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid to parameter, expected RFC3339"})
		}
		end = parsed
	}

	logs, err := s.history.List(c.Query("medication_id"), start, end, c.QueryInt("limit", 50))
	if err != nil {
		s.logger.Error("Failed to list intake history", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{"error": "failed to list history"})
	}
	return c.JSON(logs)
}

func (s *Server) handleHistoryToday(c *fiber.Ctx) error {
	if s.history == nil {
		return c.JSON([]history.IntakeLog{})
	}

	logs, err := s.history.TodayLogs()
	if err != nil {
		s.logger.Error("Failed to list today's intake history", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{"error": "failed to list history"})
	}
	return c.JSON(logs)
}

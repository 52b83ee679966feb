// Package history keeps an append-only log of confirmed doses in SQLite.
package history

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store wraps the intake log table.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore migrates the intake log schema and returns a store.
func NewStore(db *gorm.DB, logger *zap.Logger) (*Store, error) {
	if err := db.AutoMigrate(&IntakeLog{}); err != nil {
		return nil, err
	}
	return &Store{db: db, logger: logger}, nil
}

// Record appends one intake entry. A zero ID gets a fresh UUID and a zero
// TakenAt defaults to now.
func (s *Store) Record(log IntakeLog) (IntakeLog, error) {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.TakenAt.IsZero() {
		log.TakenAt = time.Now()
	}
	if err := s.db.Create(&log).Error; err != nil {
		return IntakeLog{}, err
	}
	return log, nil
}

// List returns entries newest first, optionally filtered by medication and
// time range. A non-positive limit returns everything matching.
func (s *Store) List(medicationID string, start, end time.Time, limit int) ([]IntakeLog, error) {
	query := s.db.Order("taken_at DESC")
	if medicationID != "" {
		query = query.Where("medication_id = ?", medicationID)
	}
	if !start.IsZero() {
		query = query.Where("taken_at >= ?", start)
	}
	if !end.IsZero() {
		query = query.Where("taken_at <= ?", end)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var logs []IntakeLog
	if err := query.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// TodayLogs returns all entries taken since local midnight.
func (s *Store) TodayLogs() ([]IntakeLog, error) {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.List("", midnight, time.Time{}, 0)
}

package notify

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/medtrack-app/medtrack/internal/medication"
	"go.uber.org/zap"
)

// ReminderID is the identifier of the dose reminder for one medication at
// one clock time.
func ReminderID(medicationID, clock string) string {
	return fmt.Sprintf("reminder-%s-%s", medicationID, clock)
}

// LowStockID is the identifier of the low stock alert for one medication.
func LowStockID(medicationID string) string {
	return fmt.Sprintf("lowstock-%s", medicationID)
}

// Manager keeps the notifier in sync with the medication collection. Every
// change to a medication cancels its pending notifications first and then
// schedules a fresh set, so there is never more than one notification per
// identifier.
type Manager struct {
	mu         sync.Mutex
	notifier   Notifier
	permission atomic.Bool
	clock      func() time.Time
	logger     *zap.Logger
}

func NewManager(notifier Notifier, logger *zap.Logger, permitted bool) *Manager {
	m := &Manager{
		notifier: notifier,
		clock:    time.Now,
		logger:   logger,
	}
	m.permission.Store(permitted)
	return m
}

// SetPermission toggles whether scheduling is allowed. Without permission
// every schedule request is a logged no-op; pending notifications are not
// affected until their medication changes.
func (m *Manager) SetPermission(granted bool) {
	m.permission.Store(granted)
}

func (m *Manager) Permitted() bool {
	return m.permission.Load()
}

// MedicationChanged re-derives the notification set for one medication.
func (m *Manager) MedicationChanged(med medication.Medication) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelLocked(med.ID)
	m.scheduleLocked(med)
}

// MedicationRemoved cancels everything scheduled for the medication.
func (m *Manager) MedicationRemoved(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelLocked(id)
}

// ReconcileAll rebuilds the notification set for the whole collection. Run
// on startup and by the daily reschedule job.
func (m *Manager) ReconcileAll(meds []medication.Medication) {
	for _, med := range meds {
		m.MedicationChanged(med)
	}
}

// Scheduled exposes the pending identifiers for inspection.
func (m *Manager) Scheduled() []string {
	return m.notifier.Scheduled()
}

func (m *Manager) cancelLocked(medicationID string) {
	prefix := fmt.Sprintf("reminder-%s-", medicationID)
	lowStock := LowStockID(medicationID)

	for _, id := range m.notifier.Scheduled() {
		if strings.HasPrefix(id, prefix) || id == lowStock {
			if err := m.notifier.Cancel(id); err != nil {
				m.logger.Warn("Failed to cancel notification",
					zap.String("id", id),
					zap.Error(err),
				)
			}
		}
	}
}

func (m *Manager) scheduleLocked(med medication.Medication) {
	if !m.permission.Load() {
		m.logger.Warn("Notification permission not granted, skipping schedule",
			zap.String("medication_id", med.ID),
		)
		return
	}

	now := m.clock()

	for _, clock := range med.Times {
		fireAt, err := medication.NextOccurrence(now, clock)
		if err != nil {
			m.logger.Warn("Skipping malformed reminder time",
				zap.String("medication_id", med.ID),
				zap.String("time", clock),
			)
			continue
		}

		content := Content{
			Title:        "Time to take your medication",
			Body:         fmt.Sprintf("It's time to take %s (%s)", med.Name, med.Dosage),
			MedicationID: med.ID,
		}
		if err := m.notifier.Register(ReminderID(med.ID, clock), fireAt, content); err != nil {
			m.logger.Error("Failed to register reminder",
				zap.String("medication_id", med.ID),
				zap.String("time", clock),
				zap.Error(err),
			)
			return
		}
	}

	m.scheduleLowStockLocked(med, now)
}

func (m *Manager) scheduleLowStockLocked(med medication.Medication, now time.Time) {
	days, err := medication.DaysRemaining(med.TotalAmount, med.AmountPerDose, med.Frequency)
	if err != nil {
		m.logger.Warn("Cannot estimate stock",
			zap.String("medication_id", med.ID),
			zap.Error(err),
		)
		return
	}
	if !medication.IsLowStock(days) {
		return
	}

	content := Content{
		Title:        "Low Medication Stock Alert",
		Body:         fmt.Sprintf("You have %d days of %s remaining based on your current schedule.", days, med.Name),
		MedicationID: med.ID,
	}
	if err := m.notifier.Register(LowStockID(med.ID), now.Add(time.Second), content); err != nil {
		m.logger.Error("Failed to register low stock alert",
			zap.String("medication_id", med.ID),
			zap.Error(err),
		)
	}
}

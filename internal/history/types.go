package history

import "time"

// IntakeLog records a single confirmed dose. Rows are append-only; the
// medication fields are denormalized so history survives deletion of the
// medication itself.
type IntakeLog struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	MedicationID string    `gorm:"index" json:"medicationId"`
	Name         string    `json:"name"`
	Dosage       string    `json:"dosage"`
	Amount       int       `json:"amount"`
	TakenAt      time.Time `gorm:"index" json:"takenAt"`
	CreatedAt    time.Time `json:"createdAt"`
}

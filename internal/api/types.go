package api

import (
	"github.com/medtrack-app/medtrack/internal/medication"
)

type loginRequest struct {
	Password string `json:"password"`
}

type stockResponse struct {
	MedicationID  string `json:"medicationId"`
	TotalAmount   int    `json:"totalAmount"`
	DaysRemaining int    `json:"daysRemaining"`
	LowStock      bool   `json:"lowStock"`
}

type takeResponse struct {
	Medication    medication.Medication `json:"medication"`
	DaysRemaining int                   `json:"daysRemaining"`
	LowStock      bool                  `json:"lowStock"`
}

type scheduleResponse struct {
	DueNow   []medication.Medication `json:"dueNow"`
	Upcoming []medication.Medication `json:"upcoming"`
}

type notificationsResponse struct {
	Permission bool     `json:"permission"`
	Scheduled  []string `json:"scheduled"`
}

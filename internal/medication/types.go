package medication

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/medtrack-app/medtrack/internal/errors"
)

// Medication represents one drug regimen: what to take, when, and how much
// stock is left. IDs are opaque strings, unique across the collection and
// immutable once assigned.
type Medication struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Dosage        string   `json:"dosage"`
	Frequency     int      `json:"frequency"`
	AmountPerDose int      `json:"amountPerDose"`
	TotalAmount   int      `json:"totalAmount"`
	Times         []string `json:"times"`
	Notes         string   `json:"notes,omitempty"`
}

// Input is a medication without an identity, as submitted by a client.
type Input struct {
	Name          string   `json:"name"`
	Dosage        string   `json:"dosage"`
	Frequency     int      `json:"frequency"`
	AmountPerDose int      `json:"amountPerDose"`
	TotalAmount   int      `json:"totalAmount"`
	Times         []string `json:"times"`
	Notes         string   `json:"notes,omitempty"`
}

// Validate checks an input at the API boundary. The store itself never
// validates; anything that gets past here is persisted as-is.
func (in Input) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperrors.New("MED_002", "name is required")
	}
	if in.Frequency <= 0 {
		return apperrors.New("MED_002", "frequency must be a positive integer")
	}
	if in.AmountPerDose <= 0 {
		return apperrors.New("MED_002", "amountPerDose must be a positive integer")
	}
	if in.TotalAmount < 0 {
		return apperrors.New("MED_002", "totalAmount must not be negative")
	}
	for _, t := range in.Times {
		if _, _, err := ParseClock(t); err != nil {
			return err
		}
	}
	return nil
}

// ParseClock parses a strict 24-hour "HH:MM" time-of-day string.
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, 0, apperrors.New("MED_003", fmt.Sprintf("malformed time %q, expected HH:MM", s))
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, apperrors.New("MED_003", fmt.Sprintf("malformed time %q, hour out of range", s))
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, apperrors.New("MED_003", fmt.Sprintf("malformed time %q, minute out of range", s))
	}
	return hour, minute, nil
}

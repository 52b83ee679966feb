package medication

import (
	"fmt"

	apperrors "github.com/medtrack-app/medtrack/internal/errors"
)

// LowStockDays is the supply threshold, in days, at or below which a
// medication counts as low on stock.
const LowStockDays = 3

// DaysRemaining estimates the days of supply left given current stock and the
// daily consumption rate: floor(totalAmount / (amountPerDose * frequency)).
// A non-positive amountPerDose or frequency is a caller error.
func DaysRemaining(totalAmount, amountPerDose, frequency int) (int, error) {
	if amountPerDose <= 0 || frequency <= 0 {
		return 0, apperrors.New("MED_004",
			fmt.Sprintf("amountPerDose (%d) and frequency (%d) must be positive", amountPerDose, frequency))
	}
	perDay := amountPerDose * frequency
	days := totalAmount / perDay
	// Stock can go negative after repeated takes; keep floor semantics there.
	if totalAmount < 0 && totalAmount%perDay != 0 {
		days--
	}
	return days, nil
}

// IsLowStock reports whether the estimated days of supply are at or below the
// low-stock threshold.
func IsLowStock(daysRemaining int) bool {
	return daysRemaining <= LowStockDays
}

package medication

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaysRemaining(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		perDose   int
		frequency int
		want      int
	}{
		{"once daily", 30, 1, 1, 30},
		{"two per dose twice daily", 10, 2, 2, 2},
		{"rounds down", 7, 2, 1, 3},
		{"empty", 0, 1, 2, 0},
		{"negative stock floors down", -1, 1, 1, -1},
		{"negative stock partial day", -1, 2, 1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days, err := DaysRemaining(tt.total, tt.perDose, tt.frequency)
			require.NoError(t, err)
			assert.Equal(t, tt.want, days)
		})
	}
}

func TestDaysRemaining_InvalidArguments(t *testing.T) {
	_, err := DaysRemaining(30, 0, 1)
	assert.Error(t, err)

	_, err = DaysRemaining(30, 1, 0)
	assert.Error(t, err)

	_, err = DaysRemaining(30, -1, 2)
	assert.Error(t, err)
}

func TestIsLowStock(t *testing.T) {
	assert.True(t, IsLowStock(3))
	assert.True(t, IsLowStock(0))
	assert.True(t, IsLowStock(-2))
	assert.False(t, IsLowStock(4))
}

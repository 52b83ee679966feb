package cron

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAddJob_RejectsInvalidSpec(t *testing.T) {
	runner := NewRunner(zap.NewNop())

	err := runner.AddJob("broken", "not a cron spec", func() {})
	assert.Error(t, err)
}

func TestAddJob_AcceptsDefaultSpec(t *testing.T) {
	runner := NewRunner(zap.NewNop())

	err := runner.AddJob("reschedule", DefaultRescheduleSpec, func() {})
	assert.NoError(t, err)
}

func TestStartStop(t *testing.T) {
	runner := NewRunner(zap.NewNop())
	require.NoError(t, runner.AddJob("noop", "@daily", func() {}))

	require.NoError(t, runner.Start())
	assert.True(t, runner.IsRunning())

	assert.Error(t, runner.Start(), "double start must fail")

	runner.Stop()
	assert.False(t, runner.IsRunning())

	// Stopping twice is harmless.
	runner.Stop()
}

package webhook

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/medtrack-app/medtrack/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleNotification() notify.Notification {
	return notify.Notification{
		ID:     "reminder-1-08:00",
		FireAt: time.Now(),
		Content: notify.Content{
			Title:        "Time to take your medication",
			Body:         "It's time to take Aspirin (500mg)",
			MedicationID: "1",
		},
	}
}

func TestDeliver_PostsJSON(t *testing.T) {
	var got notify.Notification
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer server.Close()

	sink := NewSink(Config{Enabled: true, URL: server.URL}, zap.NewNop())

	require.NoError(t, sink.Deliver(sampleNotification()))
	assert.Equal(t, "reminder-1-08:00", got.ID)
	assert.Equal(t, "1", got.Content.MedicationID)
}

func TestDeliver_NonSuccessStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sink := NewSink(Config{Enabled: true, URL: server.URL}, zap.NewNop())

	assert.Error(t, sink.Deliver(sampleNotification()))
}

func TestDeliver_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sink := NewSink(Config{Enabled: true, URL: server.URL}, zap.NewNop())

	for i := 0; i < 3; i++ {
		assert.Error(t, sink.Deliver(sampleNotification()))
	}

	// Breaker is open now, so this call fails without reaching the server.
	assert.Error(t, sink.Deliver(sampleNotification()))
	assert.Equal(t, 3, hits)
}

func TestDeliver_DisabledSinkIsNoOp(t *testing.T) {
	sink := NewSink(Config{Enabled: false}, zap.NewNop())

	assert.NoError(t, sink.Deliver(sampleNotification()))
}

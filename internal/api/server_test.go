package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/glebarez/go-sqlite" // Pure Go SQLite driver
	"github.com/medtrack-app/medtrack/internal/config"
	"github.com/medtrack-app/medtrack/internal/history"
	"github.com/medtrack-app/medtrack/internal/medication"
	"github.com/medtrack-app/medtrack/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// memPersister keeps the collection in memory for handler tests.
type memPersister struct {
	saved []medication.Medication
}

func (m *memPersister) Load() ([]medication.Medication, error) {
	out := make([]medication.Medication, len(m.saved))
	copy(out, m.saved)
	return out, nil
}

func (m *memPersister) Save(meds []medication.Medication) error {
	m.saved = make([]medication.Medication, len(meds))
	copy(m.saved, meds)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Address:      "127.0.0.1",
			Port:         0,
			ReadTimeout:  5,
			WriteTimeout: 5,
			RateRPM:      600000,
			RateBurst:    10000,
		},
		Security: config.SecurityConfig{
			JWTSecret:    "test-secret",
			AllowOrigins: []string{"*"},
		},
	}
}

func setupServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()

	logger := zap.NewNop()
	store := medication.NewStore(&memPersister{}, logger)
	require.NoError(t, store.Load())

	sqlDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db, err := gorm.Open(sqlite.Dialector{Conn: sqlDB}, &gorm.Config{})
	require.NoError(t, err)
	historyStore, err := history.NewStore(db, logger)
	require.NoError(t, err)

	notifier := notify.NewLocalNotifier(logger)
	t.Cleanup(notifier.Stop)
	manager := notify.NewManager(notifier, logger, true)
	store.SetReconciler(manager)

	return New(cfg, store, historyStore, manager, logger)
}

func login(t *testing.T, s *Server, password string) string {
	t.Helper()
	resp := doJSON(t, s, http.MethodPost, "/api/auth/login", "", map[string]string{"password": password})
	require.Equal(t, 200, resp.StatusCode)

	var body map[string]string
	decode(t, resp, &body)
	require.NotEmpty(t, body["token"])
	return body["token"]
}

func doJSON(t *testing.T, s *Server, method, path, token string, payload any) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func validPayload(name string) map[string]any {
	return map[string]any{
		"name":          name,
		"dosage":        "500mg",
		"frequency":     2,
		"amountPerDose": 1,
		"totalAmount":   20,
		"times":         []string{"08:00", "20:00"},
	}
}

func TestHealth(t *testing.T) {
	s := setupServer(t, testConfig())

	resp := doJSON(t, s, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestLogin_WrongPassword(t *testing.T) {
	cfg := testConfig()
	cfg.Security.AdminPassword = "correct"
	s := setupServer(t, cfg)

	resp := doJSON(t, s, http.MethodPost, "/api/auth/login", "", map[string]string{"password": "wrong"})
	assert.Equal(t, 401, resp.StatusCode)
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	s := setupServer(t, testConfig())

	resp := doJSON(t, s, http.MethodGet, "/api/medications", "", nil)
	assert.Equal(t, 401, resp.StatusCode)

	resp = doJSON(t, s, http.MethodGet, "/api/medications", "not-a-jwt", nil)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestCreateAndListMedications(t *testing.T) {
	s := setupServer(t, testConfig())
	token := login(t, s, "")

	resp := doJSON(t, s, http.MethodPost, "/api/medications", token, validPayload("Aspirin"))
	require.Equal(t, 201, resp.StatusCode)

	var created medication.Medication
	decode(t, resp, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Aspirin", created.Name)

	resp = doJSON(t, s, http.MethodGet, "/api/medications", token, nil)
	require.Equal(t, 200, resp.StatusCode)

	var list []medication.Medication
	decode(t, resp, &list)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
}

func TestCreateMedication_InvalidInput(t *testing.T) {
	s := setupServer(t, testConfig())
	token := login(t, s, "")

	payload := validPayload("Aspirin")
	payload["frequency"] = 0

	resp := doJSON(t, s, http.MethodPost, "/api/medications", token, payload)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestUpdateMedication_AbsentIDIsSilentNoOp(t *testing.T) {
	s := setupServer(t, testConfig())
	token := login(t, s, "")

	resp := doJSON(t, s, http.MethodPut, "/api/medications/no-such-id", token, validPayload("Phantom"))
	assert.Equal(t, 204, resp.StatusCode)

	resp = doJSON(t, s, http.MethodGet, "/api/medications", token, nil)
	var list []medication.Medication
	decode(t, resp, &list)
	assert.Empty(t, list)
}

func TestUpdateMedication_ReplacesRecord(t *testing.T) {
	s := setupServer(t, testConfig())
	token := login(t, s, "")

	resp := doJSON(t, s, http.MethodPost, "/api/medications", token, validPayload("Aspirin"))
	var created medication.Medication
	decode(t, resp, &created)

	payload := validPayload("Aspirin Forte")
	resp = doJSON(t, s, http.MethodPut, "/api/medications/"+created.ID, token, payload)
	require.Equal(t, 204, resp.StatusCode)

	resp = doJSON(t, s, http.MethodGet, "/api/medications/"+created.ID, token, nil)
	var updated medication.Medication
	decode(t, resp, &updated)
	assert.Equal(t, "Aspirin Forte", updated.Name)
	assert.Equal(t, created.ID, updated.ID)
}

func TestDeleteMedication(t *testing.T) {
	s := setupServer(t, testConfig())
	token := login(t, s, "")

	resp := doJSON(t, s, http.MethodPost, "/api/medications", token, validPayload("Aspirin"))
	var created medication.Medication
	decode(t, resp, &created)

	resp = doJSON(t, s, http.MethodDelete, "/api/medications/"+created.ID, token, nil)
	assert.Equal(t, 204, resp.StatusCode)

	resp = doJSON(t, s, http.MethodGet, "/api/medications/"+created.ID, token, nil)
	assert.Equal(t, 404, resp.StatusCode)

	// Deleting again is still a 204.
	resp = doJSON(t, s, http.MethodDelete, "/api/medications/"+created.ID, token, nil)
	assert.Equal(t, 204, resp.StatusCode)
}

func TestTake_DecrementsAndRecordsHistory(t *testing.T) {
	s := setupServer(t, testConfig())
	token := login(t, s, "")

	resp := doJSON(t, s, http.MethodPost, "/api/medications", token, validPayload("Aspirin"))
	var created medication.Medication
	decode(t, resp, &created)

	resp = doJSON(t, s, http.MethodPost, "/api/medications/"+created.ID+"/take", token, nil)
	require.Equal(t, 200, resp.StatusCode)

	var taken takeResponse
	decode(t, resp, &taken)
	assert.Equal(t, 19, taken.Medication.TotalAmount)
	assert.Equal(t, 9, taken.DaysRemaining)
	assert.False(t, taken.LowStock)

	resp = doJSON(t, s, http.MethodGet, "/api/history/today", token, nil)
	require.Equal(t, 200, resp.StatusCode)
	var logs []history.IntakeLog
	decode(t, resp, &logs)
	require.Len(t, logs, 1)
	assert.Equal(t, created.ID, logs[0].MedicationID)
}

func TestTake_NotFound(t *testing.T) {
	s := setupServer(t, testConfig())
	token := login(t, s, "")

	resp := doJSON(t, s, http.MethodPost, "/api/medications/no-such-id/take", token, nil)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestStock(t *testing.T) {
	s := setupServer(t, testConfig())
	token := login(t, s, "")

	payload := validPayload("Aspirin")
	payload["totalAmount"] = 6

	resp := doJSON(t, s, http.MethodPost, "/api/medications", token, payload)
	var created medication.Medication
	decode(t, resp, &created)

	resp = doJSON(t, s, http.MethodGet, "/api/medications/"+created.ID+"/stock", token, nil)
	require.Equal(t, 200, resp.StatusCode)

	var stock stockResponse
	decode(t, resp, &stock)
	assert.Equal(t, 3, stock.DaysRemaining)
	assert.True(t, stock.LowStock)
}

func TestSchedule_PinnedEvaluationTime(t *testing.T) {
	s := setupServer(t, testConfig())
	token := login(t, s, "")

	doJSON(t, s, http.MethodPost, "/api/medications", token, validPayload("Aspirin"))

	resp := doJSON(t, s, http.MethodGet, "/api/schedule?at=2025-06-15T08:10:00Z", token, nil)
	require.Equal(t, 200, resp.StatusCode)

	var sched scheduleResponse
	decode(t, resp, &sched)
	assert.Len(t, sched.DueNow, 1, "08:00 dose is due at 08:10")
	assert.Len(t, sched.Upcoming, 1, "20:00 dose is later today")
}

func TestSchedule_InvalidAtParameter(t *testing.T) {
	s := setupServer(t, testConfig())
	token := login(t, s, "")

	resp := doJSON(t, s, http.MethodGet, "/api/schedule?at=yesterday", token, nil)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestNotifications_ListsScheduledIdentifiers(t *testing.T) {
	s := setupServer(t, testConfig())
	token := login(t, s, "")

	resp := doJSON(t, s, http.MethodPost, "/api/medications", token, validPayload("Aspirin"))
	var created medication.Medication
	decode(t, resp, &created)

	resp = doJSON(t, s, http.MethodGet, "/api/notifications", token, nil)
	require.Equal(t, 200, resp.StatusCode)

	var notifications notificationsResponse
	decode(t, resp, &notifications)
	assert.True(t, notifications.Permission)
	assert.Contains(t, notifications.Scheduled, fmt.Sprintf("reminder-%s-08:00", created.ID))
	assert.Contains(t, notifications.Scheduled, fmt.Sprintf("reminder-%s-20:00", created.ID))
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateRPM = 60
	cfg.Server.RateBurst = 1
	s := setupServer(t, cfg)

	resp := doJSON(t, s, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, 200, resp.StatusCode)

	resp = doJSON(t, s, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, 429, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupServer(t, testConfig())

	resp := doJSON(t, s, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, 200, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Contains(t, string(raw), "medtrack_")
}

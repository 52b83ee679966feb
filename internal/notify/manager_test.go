package notify

import (
	"fmt"
	"testing"
	"time"

	"github.com/medtrack-app/medtrack/internal/medication"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeNotifier records operations in order so tests can assert on
// cancel-before-register sequencing.
type fakeNotifier struct {
	pending map[string]Notification
	ops     []string
	failAll bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{pending: make(map[string]Notification)}
}

func (f *fakeNotifier) Register(id string, fireAt time.Time, content Content) error {
	if f.failAll {
		return fmt.Errorf("register refused")
	}
	f.pending[id] = Notification{ID: id, FireAt: fireAt, Content: content}
	f.ops = append(f.ops, "register:"+id)
	return nil
}

func (f *fakeNotifier) Cancel(id string) error {
	delete(f.pending, id)
	f.ops = append(f.ops, "cancel:"+id)
	return nil
}

func (f *fakeNotifier) Scheduled() []string {
	ids := make([]string, 0, len(f.pending))
	for id := range f.pending {
		ids = append(ids, id)
	}
	return ids
}

func setupManager(t *testing.T, permitted bool) (*Manager, *fakeNotifier) {
	t.Helper()
	notifier := newFakeNotifier()
	manager := NewManager(notifier, zap.NewNop(), permitted)
	manager.clock = func() time.Time {
		return time.Date(2025, 6, 15, 9, 0, 0, 0, time.Local)
	}
	return manager, notifier
}

func sampleMed() medication.Medication {
	return medication.Medication{
		ID:            "1700000000001",
		Name:          "Aspirin",
		Dosage:        "500mg",
		Frequency:     2,
		AmountPerDose: 1,
		TotalAmount:   20,
		Times:         []string{"08:00", "20:00"},
	}
}

func TestMedicationChanged_RegistersPerTime(t *testing.T) {
	manager, notifier := setupManager(t, true)

	manager.MedicationChanged(sampleMed())

	require.Len(t, notifier.pending, 2)
	assert.Contains(t, notifier.pending, "reminder-1700000000001-08:00")
	assert.Contains(t, notifier.pending, "reminder-1700000000001-20:00")
}

func TestMedicationChanged_ReminderContent(t *testing.T) {
	manager, notifier := setupManager(t, true)

	manager.MedicationChanged(sampleMed())

	n := notifier.pending["reminder-1700000000001-20:00"]
	assert.Equal(t, "Time to take your medication", n.Content.Title)
	assert.Equal(t, "It's time to take Aspirin (500mg)", n.Content.Body)
	assert.Equal(t, "1700000000001", n.Content.MedicationID)
	assert.Equal(t, 20, n.FireAt.Hour())
}

func TestMedicationChanged_PassedTimeRollsToTomorrow(t *testing.T) {
	manager, notifier := setupManager(t, true)

	manager.MedicationChanged(sampleMed())

	// Clock is 09:00, so the 08:00 dose fires tomorrow.
	n := notifier.pending["reminder-1700000000001-08:00"]
	assert.Equal(t, 16, n.FireAt.Day())
	assert.Equal(t, 8, n.FireAt.Hour())
}

func TestMedicationChanged_CancelsBeforeScheduling(t *testing.T) {
	manager, notifier := setupManager(t, true)

	med := sampleMed()
	manager.MedicationChanged(med)

	med.Times = []string{"10:00"}
	manager.MedicationChanged(med)

	// Only the new identifier remains pending.
	require.Len(t, notifier.pending, 1)
	assert.Contains(t, notifier.pending, "reminder-1700000000001-10:00")

	// And the stale registrations were canceled before the new one landed.
	opIndex := func(op string) int {
		for i, o := range notifier.ops {
			if o == op {
				return i
			}
		}
		return -1
	}
	registerAt := opIndex("register:reminder-1700000000001-10:00")
	require.GreaterOrEqual(t, registerAt, 0)
	for _, stale := range []string{"cancel:reminder-1700000000001-08:00", "cancel:reminder-1700000000001-20:00"} {
		canceledAt := opIndex(stale)
		require.GreaterOrEqual(t, canceledAt, 0)
		assert.Less(t, canceledAt, registerAt, "cancel must precede the fresh register")
	}
}

func TestMedicationRemoved_CancelsEverything(t *testing.T) {
	manager, notifier := setupManager(t, true)

	med := sampleMed()
	med.TotalAmount = 2 // low stock alert as well
	manager.MedicationChanged(med)
	require.Len(t, notifier.pending, 3)

	manager.MedicationRemoved(med.ID)

	assert.Empty(t, notifier.pending)
}

func TestMedicationRemoved_LeavesOtherMedicationsAlone(t *testing.T) {
	manager, notifier := setupManager(t, true)

	a := sampleMed()
	b := sampleMed()
	b.ID = "1700000000002"
	manager.MedicationChanged(a)
	manager.MedicationChanged(b)

	manager.MedicationRemoved(a.ID)

	require.Len(t, notifier.pending, 2)
	assert.Contains(t, notifier.pending, "reminder-1700000000002-08:00")
	assert.Contains(t, notifier.pending, "reminder-1700000000002-20:00")
}

func TestLowStockAlert_ScheduledWhenLow(t *testing.T) {
	manager, notifier := setupManager(t, true)

	med := sampleMed()
	med.TotalAmount = 6 // 3 days at 2 doses of 1
	manager.MedicationChanged(med)

	n, ok := notifier.pending["lowstock-1700000000001"]
	require.True(t, ok)
	assert.Equal(t, "Low Medication Stock Alert", n.Content.Title)
	assert.Equal(t, "You have 3 days of Aspirin remaining based on your current schedule.", n.Content.Body)
	assert.True(t, n.FireAt.After(manager.clock()))
}

func TestLowStockAlert_NotScheduledWhenSufficient(t *testing.T) {
	manager, notifier := setupManager(t, true)

	manager.MedicationChanged(sampleMed()) // 10 days of stock

	assert.NotContains(t, notifier.pending, "lowstock-1700000000001")
}

func TestPermissionDenied_ScheduleIsNoOp(t *testing.T) {
	manager, notifier := setupManager(t, false)

	manager.MedicationChanged(sampleMed())

	assert.Empty(t, notifier.pending)
}

func TestPermissionDenied_StillCancels(t *testing.T) {
	manager, notifier := setupManager(t, true)

	manager.MedicationChanged(sampleMed())
	require.Len(t, notifier.pending, 2)

	manager.SetPermission(false)
	manager.MedicationChanged(sampleMed())

	assert.Empty(t, notifier.pending)
}

func TestScheduleLocked_RegisterFailureStopsChain(t *testing.T) {
	manager, notifier := setupManager(t, true)
	notifier.failAll = true

	manager.MedicationChanged(sampleMed())

	assert.Empty(t, notifier.pending)
}

func TestScheduleLocked_SkipsMalformedTimes(t *testing.T) {
	manager, notifier := setupManager(t, true)

	med := sampleMed()
	med.Times = []string{"8am", "20:00"}
	manager.MedicationChanged(med)

	require.Len(t, notifier.pending, 1)
	assert.Contains(t, notifier.pending, "reminder-1700000000001-20:00")
}

func TestReconcileAll(t *testing.T) {
	manager, notifier := setupManager(t, true)

	a := sampleMed()
	b := sampleMed()
	b.ID = "1700000000002"
	b.Times = []string{"12:00"}

	manager.ReconcileAll([]medication.Medication{a, b})

	assert.Len(t, notifier.pending, 3)
}

func TestIdentifierHelpers(t *testing.T) {
	assert.Equal(t, "reminder-42-08:30", ReminderID("42", "08:30"))
	assert.Equal(t, "lowstock-42", LowStockID("42"))
}

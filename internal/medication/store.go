package medication

import (
	"strconv"
	"sync"
	"time"

	apperrors "github.com/medtrack-app/medtrack/internal/errors"
	"github.com/medtrack-app/medtrack/internal/metrics"
	"go.uber.org/zap"
)

// Persister mirrors the collection to durable storage. The whole collection
// is rewritten on every mutation; there is no incremental diffing.
type Persister interface {
	Load() ([]Medication, error)
	Save(meds []Medication) error
}

// Reconciler is told about mutations after they are persisted so notification
// state can be brought in line with the record. Calls happen at the end of
// each store operation, never as a detached reactive effect, which keeps
// cancel-before-reschedule ordering deterministic.
type Reconciler interface {
	MedicationChanged(med Medication)
	MedicationRemoved(id string)
}

// Store holds the in-memory medication collection in insertion order and
// mirrors it to a Persister on every mutation. Writes are optimistic: a
// persistence failure is logged and the in-memory state is kept, not rolled
// back.
type Store struct {
	mu         sync.Mutex
	meds       []Medication
	persister  Persister
	reconciler Reconciler
	logger     *zap.Logger
}

// NewStore creates a store. Call Load before serving requests.
func NewStore(p Persister, logger *zap.Logger) *Store {
	return &Store{
		persister: p,
		logger:    logger,
	}
}

// SetReconciler wires the notification lifecycle manager. Optional; a nil
// reconciler means mutations skip notification reconciliation (used in tests
// and before wiring completes).
func (s *Store) SetReconciler(r Reconciler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconciler = r
}

// Load reads the persisted collection into memory, replacing whatever is
// there. Explicit initialization, no hidden startup magic.
func (s *Store) Load() error {
	meds, err := s.persister.Load()
	if err != nil {
		return apperrors.Wrap(err, "STORE_002", "failed to load medications")
	}

	s.mu.Lock()
	s.meds = meds
	s.mu.Unlock()

	s.logger.Info("Medications loaded", zap.Int("count", len(meds)))
	return nil
}

// Add assigns a fresh id, appends the record, persists the collection, and
// schedules notifications for the new record. It never fails validation;
// that is the API boundary's job.
func (s *Store) Add(input Input) Medication {
	s.mu.Lock()
	med := Medication{
		ID:            s.mintIDLocked(),
		Name:          input.Name,
		Dosage:        input.Dosage,
		Frequency:     input.Frequency,
		AmountPerDose: input.AmountPerDose,
		TotalAmount:   input.TotalAmount,
		Times:         append([]string(nil), input.Times...),
		Notes:         input.Notes,
	}
	s.meds = append(s.meds, med)
	s.persistLocked()
	r := s.reconciler
	s.mu.Unlock()

	metrics.RecordMedicationCreated()
	s.logger.Info("Medication added",
		zap.String("medication_id", med.ID),
		zap.String("name", med.Name),
	)

	if r != nil {
		r.MedicationChanged(med)
	}
	return med
}

// Update replaces the record matching id with the given full record. An
// absent id is a silent no-op, not an error.
func (s *Store) Update(id string, med Medication) {
	med.ID = id

	s.mu.Lock()
	found := false
	for i := range s.meds {
		if s.meds[i].ID == id {
			s.meds[i] = med
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return
	}
	s.persistLocked()
	r := s.reconciler
	s.mu.Unlock()

	metrics.RecordMedicationUpdated()
	s.logger.Info("Medication updated", zap.String("medication_id", id))

	if r != nil {
		r.MedicationChanged(med)
	}
}

// Delete removes the record matching id, persists, and cancels all of its
// notifications. Idempotent: a second call is a no-op.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	found := false
	for i := range s.meds {
		if s.meds[i].ID == id {
			s.meds = append(s.meds[:i], s.meds[i+1:]...)
			found = true
			break
		}
	}
	if found {
		s.persistLocked()
	}
	r := s.reconciler
	s.mu.Unlock()

	if found {
		metrics.RecordMedicationDeleted()
		s.logger.Info("Medication deleted", zap.String("medication_id", id))
	}

	// Cancel runs even for an absent id; canceling nothing is harmless and
	// keeps delete idempotent from the notification side too.
	if r != nil {
		r.MedicationRemoved(id)
	}
}

// Take decrements the stock of the record matching id by its per-dose amount,
// persists, and re-evaluates notifications (low-stock status may have
// changed). Stock is not floored at zero; it may go negative.
func (s *Store) Take(id string) (Medication, error) {
	s.mu.Lock()
	idx := -1
	for i := range s.meds {
		if s.meds[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return Medication{}, apperrors.ErrMedicationNotFound
	}
	s.meds[idx].TotalAmount -= s.meds[idx].AmountPerDose
	med := s.meds[idx]
	s.persistLocked()
	r := s.reconciler
	s.mu.Unlock()

	metrics.RecordDoseTaken()
	s.logger.Info("Dose taken",
		zap.String("medication_id", med.ID),
		zap.Int("remaining", med.TotalAmount),
	)

	if r != nil {
		r.MedicationChanged(med)
	}
	return med, nil
}

// List returns a snapshot of the collection in insertion order.
func (s *Store) List() []Medication {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Medication, len(s.meds))
	copy(out, s.meds)
	return out
}

// Get returns the record matching id, if present.
func (s *Store) Get(id string) (Medication, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, med := range s.meds {
		if med.ID == id {
			return med, true
		}
	}
	return Medication{}, false
}

// persistLocked rewrites the whole collection. Failures are logged and
// swallowed: the in-memory state stays authoritative and the caller is not
// interrupted. Must be called with s.mu held.
func (s *Store) persistLocked() {
	snapshot := make([]Medication, len(s.meds))
	copy(snapshot, s.meds)
	if err := s.persister.Save(snapshot); err != nil {
		metrics.RecordPersistFailure()
		s.logger.Error("Failed to persist medications", zap.Error(err))
	}
}

// mintIDLocked generates a time-based id (unix milliseconds as a decimal
// string) and bumps it until unique, since two adds can land on the same
// millisecond. Must be called with s.mu held.
func (s *Store) mintIDLocked() string {
	ms := time.Now().UnixMilli()
	for {
		id := strconv.FormatInt(ms, 10)
		taken := false
		for i := range s.meds {
			if s.meds[i].ID == id {
				taken = true
				break
			}
		}
		if !taken {
			return id
		}
		ms++
	}
}

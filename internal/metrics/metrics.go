package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the tracker. Everything hangs
// off a private registry so tests can build isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	medicationsCreated prometheus.Counter
	medicationsUpdated prometheus.Counter
	medicationsDeleted prometheus.Counter
	dosesTaken         prometheus.Counter
	persistFailures    prometheus.Counter

	notificationsScheduled prometheus.Counter
	notificationsCanceled  prometheus.Counter
	notificationsDelivered prometheus.Counter
	notificationsActive    prometheus.Gauge

	deliveryFailures *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		medicationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medtrack_medications_created_total",
			Help: "Medications added to the collection",
		}),
		medicationsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medtrack_medications_updated_total",
			Help: "Medication records replaced in place",
		}),
		medicationsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medtrack_medications_deleted_total",
			Help: "Medications removed from the collection",
		}),
		dosesTaken: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medtrack_doses_taken_total",
			Help: "Doses marked as taken",
		}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medtrack_persist_failures_total",
			Help: "Failed writes of the medication collection",
		}),
		notificationsScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medtrack_notifications_scheduled_total",
			Help: "One-shot notifications registered",
		}),
		notificationsCanceled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medtrack_notifications_canceled_total",
			Help: "Scheduled notifications canceled before firing",
		}),
		notificationsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medtrack_notifications_delivered_total",
			Help: "Notifications that fired and were handed to sinks",
		}),
		notificationsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "medtrack_notifications_active",
			Help: "Currently scheduled notifications",
		}),
		deliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medtrack_delivery_failures_total",
			Help: "Delivery failures per channel",
		}, []string{"channel"}),
	}

	registry.MustRegister(
		m.medicationsCreated,
		m.medicationsUpdated,
		m.medicationsDeleted,
		m.dosesTaken,
		m.persistFailures,
		m.notificationsScheduled,
		m.notificationsCanceled,
		m.notificationsDelivered,
		m.notificationsActive,
		m.deliveryFailures,
	)

	return m
}

func (m *Metrics) RecordMedicationCreated()  { m.medicationsCreated.Inc() }
func (m *Metrics) RecordMedicationUpdated()  { m.medicationsUpdated.Inc() }
func (m *Metrics) RecordMedicationDeleted()  { m.medicationsDeleted.Inc() }
func (m *Metrics) RecordDoseTaken()          { m.dosesTaken.Inc() }
func (m *Metrics) RecordPersistFailure()     { m.persistFailures.Inc() }
func (m *Metrics) RecordNotificationScheduled() {
	m.notificationsScheduled.Inc()
	m.notificationsActive.Inc()
}
func (m *Metrics) RecordNotificationCanceled() {
	m.notificationsCanceled.Inc()
	m.notificationsActive.Dec()
}
func (m *Metrics) RecordNotificationDelivered() {
	m.notificationsDelivered.Inc()
	m.notificationsActive.Dec()
}
func (m *Metrics) RecordDeliveryFailure(channel string) {
	m.deliveryFailures.WithLabelValues(channel).Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func RecordMedicationCreated()  { Default().RecordMedicationCreated() }
func RecordMedicationUpdated()  { Default().RecordMedicationUpdated() }
func RecordMedicationDeleted()  { Default().RecordMedicationDeleted() }
func RecordDoseTaken()          { Default().RecordDoseTaken() }
func RecordPersistFailure()     { Default().RecordPersistFailure() }

func RecordNotificationScheduled() { Default().RecordNotificationScheduled() }
func RecordNotificationCanceled()  { Default().RecordNotificationCanceled() }
func RecordNotificationDelivered() { Default().RecordNotificationDelivered() }

func RecordDeliveryFailure(channel string) { Default().RecordDeliveryFailure(channel) }

func Handler() http.Handler { return Default().Handler() }

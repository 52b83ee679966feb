package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/medtrack-app/medtrack/internal/metrics"
	"go.uber.org/zap"
)

// timerEntry ties a pending timer to the generation it was registered under.
// A timer callback that raced with a replacement carries a stale generation
// and must not deliver the replacement's notification.
type timerEntry struct {
	timer *time.Timer
	gen   uint64
}

// LocalNotifier is an in-process Notifier backed by one timer per pending
// notification. Fired notifications are fanned out to the attached sinks.
type LocalNotifier struct {
	mu      sync.Mutex
	gen     uint64
	timers  map[string]timerEntry
	pending map[string]Notification
	sinks   []Sink
	logger  *zap.Logger
}

func NewLocalNotifier(logger *zap.Logger) *LocalNotifier {
	return &LocalNotifier{
		timers:  make(map[string]timerEntry),
		pending: make(map[string]Notification),
		logger:  logger,
	}
}

// AddSink attaches a delivery sink. Not safe to call once timers may fire.
func (n *LocalNotifier) AddSink(sink Sink) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sinks = append(n.sinks, sink)
}

// Register schedules a one-shot notification, replacing any pending
// notification with the same identifier.
func (n *LocalNotifier) Register(id string, fireAt time.Time, content Content) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	duration := time.Until(fireAt)
	if duration <= 0 {
		return fmt.Errorf("notification time is in the past: %s", fireAt)
	}

	if entry, exists := n.timers[id]; exists {
		entry.timer.Stop()
		delete(n.timers, id)
		delete(n.pending, id)
		metrics.RecordNotificationCanceled()
	}

	n.gen++
	gen := n.gen
	n.pending[id] = Notification{ID: id, FireAt: fireAt, Content: content}
	n.timers[id] = timerEntry{
		timer: time.AfterFunc(duration, func() {
			n.fire(id, gen)
		}),
		gen: gen,
	}
	metrics.RecordNotificationScheduled()

	return nil
}

// Cancel removes a pending notification. Canceling an unknown identifier is
// a no-op.
func (n *LocalNotifier) Cancel(id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if entry, exists := n.timers[id]; exists {
		entry.timer.Stop()
		delete(n.timers, id)
		delete(n.pending, id)
		metrics.RecordNotificationCanceled()
	}
	return nil
}

// Scheduled returns the identifiers of all pending notifications.
func (n *LocalNotifier) Scheduled() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	ids := make([]string, 0, len(n.timers))
	for id := range n.timers {
		ids = append(ids, id)
	}
	return ids
}

// Stop cancels all pending timers. Used on shutdown.
func (n *LocalNotifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for id, entry := range n.timers {
		entry.timer.Stop()
		delete(n.timers, id)
		delete(n.pending, id)
		metrics.RecordNotificationCanceled()
	}
}

func (n *LocalNotifier) fire(id string, gen uint64) {
	n.mu.Lock()
	entry, ok := n.timers[id]
	if !ok || entry.gen != gen {
		// The registration this timer belonged to was canceled or replaced.
		n.mu.Unlock()
		return
	}
	notification := n.pending[id]
	delete(n.timers, id)
	delete(n.pending, id)
	sinks := make([]Sink, len(n.sinks))
	copy(sinks, n.sinks)
	n.mu.Unlock()

	metrics.RecordNotificationDelivered()
	n.logger.Info("Notification fired",
		zap.String("id", id),
		zap.String("title", notification.Content.Title),
	)

	for _, sink := range sinks {
		if err := sink.Deliver(notification); err != nil {
			n.logger.Warn("Notification delivery failed",
				zap.String("sink", sink.Name()),
				zap.String("id", id),
				zap.Error(err),
			)
			metrics.RecordDeliveryFailure(sink.Name())
		}
	}
}

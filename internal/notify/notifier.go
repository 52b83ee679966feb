// Package notify schedules and delivers one-shot medication notifications.
package notify

import "time"

// Content is what the user sees when a notification fires.
type Content struct {
	Title        string `json:"title"`
	Body         string `json:"body"`
	MedicationID string `json:"medicationId"`
}

// Notification is a pending or fired one-shot notification.
type Notification struct {
	ID      string    `json:"id"`
	FireAt  time.Time `json:"fireAt"`
	Content Content   `json:"content"`
}

// Notifier registers one-shot notifications keyed by identifier. Registering
// an identifier that is already pending replaces the earlier registration.
type Notifier interface {
	Register(id string, fireAt time.Time, content Content) error
	Cancel(id string) error
	Scheduled() []string
}

// Sink receives notifications that fired.
type Sink interface {
	Name() string
	Deliver(n Notification) error
}

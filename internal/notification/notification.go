// Package notification fans booking events out to the parties involved.
// Delivery is best effort: callers log failures and carry on.
package notification

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

type EventType string

const (
	EventRequestSubmitted EventType = "request.submitted"
	EventRequestAccepted  EventType = "request.accepted"
	EventRequestRejected  EventType = "request.rejected"
	EventRequestCancelled EventType = "request.cancelled"
	EventRequestCompleted EventType = "request.completed"
	EventRequestReviewed  EventType = "request.reviewed"
	EventMessagePosted    EventType = "request.message"
)

// Event describes something that happened to a booking request.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	RequestID   string    `json:"request_id"`
	RequestCode string    `json:"request_code"`
	AgencyID    string    `json:"agency_id"`
	GuideID     string    `json:"guide_id"`
	Status      string    `json:"status"`
	ServiceDate string    `json:"service_date"`
	// Actor is the side that caused the event: agency, guide or system.
	Actor      string    `json:"actor"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes events to the application log.
type LogNotifier struct {
	log logrus.FieldLogger
}

func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, e Event) error {
	n.log.WithFields(logrus.Fields{
		"event_id":     e.ID,
		"event_type":   e.Type,
		"request_id":   e.RequestID,
		"request_code": e.RequestCode,
		"status":       e.Status,
		"actor":        e.Actor,
	}).Info("booking event")
	return nil
}

// Nop discards events.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

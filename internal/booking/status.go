package booking

import "github.com/nekogravitycat/guide-booking-backend/internal/pkg/apperror"

// Status is a request's position in its life cycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Event is something a participant does to a request.
type Event string

const (
	EventAccept   Event = "accept"
	EventReject   Event = "reject"
	EventCancel   Event = "cancel"
	EventComplete Event = "complete"
)

// transitions is the whole state machine. Statuses without an entry are terminal.
var transitions = map[Status]map[Event]Status{
	StatusPending: {
		EventAccept: StatusAccepted,
		EventReject: StatusRejected,
		EventCancel: StatusCancelled,
	},
	StatusAccepted: {
		EventCancel:   StatusCancelled,
		EventComplete: StatusCompleted,
	},
}

// eventTargets maps each event to the status it always leads to.
var eventTargets = map[Event]Status{
	EventAccept:   StatusAccepted,
	EventReject:   StatusRejected,
	EventCancel:   StatusCancelled,
	EventComplete: StatusCompleted,
}

// eventActors lists which side of a request may trigger each event.
var eventActors = map[Event][]Sender{
	EventAccept:   {SenderGuide},
	EventReject:   {SenderGuide},
	EventCancel:   {SenderAgency, SenderGuide},
	EventComplete: {SenderAgency, SenderGuide},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// HoldsSlot reports whether a request in this status occupies its time on the guide's calendar.
func (s Status) HoldsSlot() bool {
	return s == StatusPending || s == StatusAccepted || s == StatusCompleted
}

// Next returns the status reached by applying e, or ErrInvalidTransition.
func (s Status) Next(e Event) (Status, error) {
	to, ok := transitions[s][e]
	if !ok {
		return s, apperror.Detail(ErrInvalidTransition, "cannot %s a %s request", e, s)
	}
	return to, nil
}

// Target is the status e leads to regardless of where it starts.
func (e Event) Target() Status {
	return eventTargets[e]
}

func (e Event) Valid() bool {
	_, ok := eventTargets[e]
	return ok
}

// AllowedFor reports whether a participant on side s may trigger e.
func (e Event) AllowedFor(s Sender) bool {
	for _, allowed := range eventActors[e] {
		if allowed == s {
			return true
		}
	}
	return false
}

package booking

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/apperror"
)

const maxMessageLength = 2000

// latest returns the most recent stamp on the timeline.
func (t *Timeline) latest() time.Time {
	latest := t.RequestedAt
	for _, ts := range []*time.Time{t.RespondedAt, t.AcceptedAt, t.CompletedAt, t.CancelledAt} {
		if ts != nil && ts.After(latest) {
			latest = *ts
		}
	}
	return latest
}

// stamp clamps at so the timeline never goes backwards.
func (t *Timeline) stamp(at time.Time) time.Time {
	if latest := t.latest(); at.Before(latest) {
		return latest
	}
	return at
}

func setOnce(field **time.Time, at time.Time) {
	if *field == nil {
		v := at
		*field = &v
	}
}

// Apply runs e against the request as triggered by side by. It returns
// changed=false without touching the request when the event's target status
// is already current, so retries are harmless.
func (r *Request) Apply(e Event, by Sender, at time.Time) (bool, error) {
	if r.Status == e.Target() {
		return false, nil
	}

	to, err := r.Status.Next(e)
	if err != nil {
		return false, err
	}

	at = r.Timeline.stamp(at)
	switch e {
	case EventAccept:
		setOnce(&r.Timeline.RespondedAt, at)
		setOnce(&r.Timeline.AcceptedAt, at)
	case EventReject:
		setOnce(&r.Timeline.RespondedAt, at)
	case EventCancel:
		setOnce(&r.Timeline.CancelledAt, at)
	case EventComplete:
		setOnce(&r.Timeline.CompletedAt, at)
	}

	r.Status = to
	r.Messages = append(r.Messages, Message{
		From:      SenderSystem,
		Body:      systemNote(e, by),
		CreatedAt: at,
	})
	return true, nil
}

func systemNote(e Event, by Sender) string {
	switch e {
	case EventAccept:
		return "Request accepted by guide"
	case EventReject:
		return "Request declined by guide"
	case EventCancel:
		return "Request cancelled by " + string(by)
	case EventComplete:
		return "Service marked as completed by " + string(by)
	}
	return string(e)
}

// NewMessage validates a participant's message body.
func NewMessage(from Sender, body string, at time.Time) (Message, error) {
	if from != SenderAgency && from != SenderGuide {
		return Message{}, apperror.Detail(ErrPermissionDenied, "only the agency or the guide may post messages")
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return Message{}, apperror.Detail(ErrValidation, "message must not be empty")
	}
	if utf8.RuneCountInString(body) > maxMessageLength {
		return Message{}, apperror.Detail(ErrValidation, "message must be at most %d characters", maxMessageLength)
	}
	return Message{From: from, Body: body, CreatedAt: at}, nil
}

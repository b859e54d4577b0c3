package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *recorder) Notify(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func sampleEvent() Event {
	return Event{
		ID:          "evt-1",
		Type:        EventRequestAccepted,
		RequestID:   "req-1",
		RequestCode: "GB-20260309-0A1B2C3D",
		AgencyID:    "agency-1",
		GuideID:     "guide-1",
		Status:      "accepted",
		ServiceDate: "2026-03-09",
		Actor:       "guide",
		OccurredAt:  time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestMultiDeliversToAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	a := &recorder{}
	b := &recorder{err: boom}
	c := &recorder{}

	err := Multi{a, b, c}.Notify(context.Background(), sampleEvent())
	assert.ErrorIs(t, err, boom)
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
	assert.Len(t, c.events, 1, "a failing sink does not starve the others")

	assert.NoError(t, Multi{a}.Notify(context.Background(), sampleEvent()))
}

func TestLogNotifier(t *testing.T) {
	log, hook := test.NewNullLogger()
	require.NoError(t, NewLogNotifier(log).Notify(context.Background(), sampleEvent()))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "GB-20260309-0A1B2C3D", entry.Data["request_code"])
	assert.Equal(t, EventRequestAccepted, entry.Data["event_type"])
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaNotifierMessageShape(t *testing.T) {
	w := &fakeWriter{}
	n := &KafkaNotifier{writer: w}

	require.NoError(t, n.Notify(context.Background(), sampleEvent()))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "guide-1", string(msg.Key))

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "evt-1", headers[HeaderEventID])
	assert.Equal(t, "request.accepted", headers[HeaderEventType])

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, sampleEvent(), decoded)
}

func TestKafkaNotifierWrapsWriteError(t *testing.T) {
	boom := errors.New("broker down")
	n := &KafkaNotifier{writer: &fakeWriter{err: boom}}
	assert.ErrorIs(t, n.Notify(context.Background(), sampleEvent()), boom)
}

func TestNewKafkaNotifierRequiresBrokersAndTopic(t *testing.T) {
	log, _ := test.NewNullLogger()
	_, err := NewKafkaNotifier(nil, "booking-events", log)
	assert.Error(t, err)
	_, err = NewKafkaNotifier([]string{"localhost:9092"}, "", log)
	assert.Error(t, err)
}

type staticBook map[string]string

func (b staticBook) LookupEmails(_ context.Context, ids ...string) (map[string]string, error) {
	out := map[string]string{}
	for _, id := range ids {
		if v, ok := b[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

type fakeMailer struct {
	sent []*gomail.Message
}

func (m *fakeMailer) DialAndSend(msgs ...*gomail.Message) error {
	m.sent = append(m.sent, msgs...)
	return nil
}

func TestEmailNotifierMailsBothParticipants(t *testing.T) {
	mailer := &fakeMailer{}
	n := &EmailNotifier{
		from:   "no-reply@example.com",
		book:   staticBook{"agency-1": "ops@agency.test", "guide-1": "ana@guide.test"},
		dialer: mailer,
	}

	require.NoError(t, n.Notify(context.Background(), sampleEvent()))
	require.Len(t, mailer.sent, 2)
	assert.Equal(t, []string{"ops@agency.test"}, mailer.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"ana@guide.test"}, mailer.sent[1].GetHeader("To"))
	assert.Equal(t, []string{"Booking GB-20260309-0A1B2C3D is now accepted"}, mailer.sent[0].GetHeader("Subject"))
}

func TestEmailNotifierSkipsUnknownRecipients(t *testing.T) {
	mailer := &fakeMailer{}
	n := &EmailNotifier{book: staticBook{}, dialer: mailer}

	require.NoError(t, n.Notify(context.Background(), sampleEvent()))
	assert.Empty(t, mailer.sent)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	log, hook := test.NewNullLogger()
	sink := &recorder{err: errors.New("smtp down")}
	n := NewBreakerNotifier("email", sink, log)

	for i := 0; i < 5; i++ {
		assert.Error(t, n.Notify(context.Background(), sampleEvent()))
	}
	assert.Equal(t, gobreaker.StateOpen, n.State())

	err := n.Notify(context.Background(), sampleEvent())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Len(t, sink.events, 5, "an open breaker does not call the sink")

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

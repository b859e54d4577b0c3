package notification

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// BreakerNotifier stops calling a failing sink until it has had time to recover.
// While open, Notify fails fast with gobreaker.ErrOpenState.
type BreakerNotifier struct {
	next Notifier
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerNotifier(name string, next Notifier, log logrus.FieldLogger) *BreakerNotifier {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
				Warn("notification circuit breaker state changed")
		},
	})
	return &BreakerNotifier{next: next, cb: cb}
}

func (n *BreakerNotifier) Notify(ctx context.Context, e Event) error {
	_, err := n.cb.Execute(func() (interface{}, error) {
		return nil, n.next.Notify(ctx, e)
	})
	return err
}

func (n *BreakerNotifier) State() gobreaker.State {
	return n.cb.State()
}

package notification

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"
)

// AddressBook resolves account ids to e-mail addresses.
type AddressBook interface {
	LookupEmails(ctx context.Context, ids ...string) (map[string]string, error)
}

type mailer interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// EmailNotifier mails both participants of a request.
type EmailNotifier struct {
	from   string
	book   AddressBook
	dialer mailer
}

func NewEmailNotifier(cfg EmailConfig, book AddressBook) *EmailNotifier {
	return &EmailNotifier{
		from:   cfg.From,
		book:   book,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass),
	}
}

func (n *EmailNotifier) Notify(ctx context.Context, e Event) error {
	addrs, err := n.book.LookupEmails(ctx, e.AgencyID, e.GuideID)
	if err != nil {
		return fmt.Errorf("lookup recipients failed: %w", err)
	}

	var msgs []*gomail.Message
	for _, id := range []string{e.AgencyID, e.GuideID} {
		to, ok := addrs[id]
		if !ok || to == "" {
			continue
		}
		m := gomail.NewMessage()
		m.SetHeader("From", n.from)
		m.SetHeader("To", to)
		m.SetHeader("Subject", subject(e))
		m.SetBody("text/plain", body(e))
		msgs = append(msgs, m)
	}
	if len(msgs) == 0 {
		return nil
	}

	if err := n.dialer.DialAndSend(msgs...); err != nil {
		return fmt.Errorf("send e-mail for event %s failed: %w", e.ID, err)
	}
	return nil
}

func subject(e Event) string {
	switch e.Type {
	case EventRequestSubmitted:
		return fmt.Sprintf("New booking request %s", e.RequestCode)
	case EventMessagePosted:
		return fmt.Sprintf("New message on booking %s", e.RequestCode)
	case EventRequestReviewed:
		return fmt.Sprintf("Booking %s was reviewed", e.RequestCode)
	}
	return fmt.Sprintf("Booking %s is now %s", e.RequestCode, e.Status)
}

func body(e Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Booking request %s\n", e.RequestCode)
	if e.ServiceDate != "" {
		fmt.Fprintf(&b, "Service date: %s\n", e.ServiceDate)
	}
	fmt.Fprintf(&b, "Status: %s\n", e.Status)
	if e.Actor != "" {
		fmt.Fprintf(&b, "Updated by: %s\n", e.Actor)
	}
	return b.String()
}

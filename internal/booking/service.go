package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nekogravitycat/guide-booking-backend/internal/auth"
	"github.com/nekogravitycat/guide-booking-backend/internal/availability"
	"github.com/nekogravitycat/guide-booking-backend/internal/guide"
	"github.com/nekogravitycat/guide-booking-backend/internal/notification"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/civil"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/clock"
	"github.com/nekogravitycat/guide-booking-backend/internal/pricing"
	"github.com/sirupsen/logrus"
)

const notifyTimeout = 5 * time.Second

// GuideReader is the slice of the guide module the lifecycle needs.
type GuideReader interface {
	GetByID(ctx context.Context, id string) (*guide.Profile, error)
}

type SubmitInput struct {
	GuideID string
	Details ServiceDetails
	// Note becomes the first agency message when set.
	Note string
}

type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// Outcome is the result of a lifecycle command. Changed is false when the
// command was a retry of a transition that had already been applied.
type Outcome struct {
	Request *Request
	Changed bool
	// CancellationPolicy is shown to the party that cancelled.
	CancellationPolicy string
}

type Service interface {
	Submit(ctx context.Context, actor auth.Actor, in SubmitInput) (*Request, error)
	Respond(ctx context.Context, actor auth.Actor, id string, decision Decision) (*Outcome, error)
	Cancel(ctx context.Context, actor auth.Actor, id string) (*Outcome, error)
	MarkCompleted(ctx context.Context, actor auth.Actor, id string) (*Outcome, error)
	AppendMessage(ctx context.Context, actor auth.Actor, id string, text string) (*Message, error)

	// MarkHasReview is called by the review module once a review has been stored.
	MarkHasReview(ctx context.Context, id string) error

	GetByID(ctx context.Context, actor auth.Actor, id string) (*Request, error)
	List(ctx context.Context, actor auth.Actor, filter Filter) ([]*Request, int, error)

	Availability(ctx context.Context, guideID string, ym civil.YearMonth) (map[civil.Date][]availability.Slot, error)
	Quote(ctx context.Context, guideID string, durationHours float64, groupType string) (pricing.Quote, error)
}

type service struct {
	repo       Repository
	guides     GuideReader
	calculator *availability.Calculator
	notifier   notification.Notifier
	clock      clock.Clock
	validator  *detailsValidator
	log        logrus.FieldLogger
}

func NewService(
	repo Repository,
	guides GuideReader,
	calculator *availability.Calculator,
	notifier notification.Notifier,
	clk clock.Clock,
	log logrus.FieldLogger,
) Service {
	return &service{
		repo:       repo,
		guides:     guides,
		calculator: calculator,
		notifier:   notifier,
		clock:      clk,
		validator:  newDetailsValidator(),
		log:        log.WithField("component", "booking"),
	}
}

func senderOf(actor auth.Actor) Sender {
	switch actor.Role {
	case auth.RoleAgency:
		return SenderAgency
	case auth.RoleGuide:
		return SenderGuide
	}
	return ""
}

// side returns the sender tag for actor on r, or ErrPermissionDenied when the
// actor is not that side of the request.
func side(actor auth.Actor, r *Request) (Sender, error) {
	switch {
	case actor.IsAgency() && actor.ID == r.AgencyID:
		return SenderAgency, nil
	case actor.IsGuide() && actor.ID == r.GuideID:
		return SenderGuide, nil
	}
	return "", ErrPermissionDenied
}

func (s *service) today() civil.Date {
	return civil.DateOf(s.clock.Now())
}

func (s *service) Submit(ctx context.Context, actor auth.Actor, in SubmitInput) (*Request, error) {
	if !actor.IsAgency() {
		return nil, apperror.Detail(ErrPermissionDenied, "only agencies can submit booking requests")
	}

	d := in.Details
	d.Languages = append([]string(nil), in.Details.Languages...)
	normalizeDetails(&d)
	if err := s.validator.Validate(&d); err != nil {
		return nil, err
	}

	var note *Message
	if strings.TrimSpace(in.Note) != "" {
		m, err := NewMessage(SenderAgency, in.Note, time.Time{})
		if err != nil {
			return nil, err
		}
		note = &m
	}

	g, err := s.guides.GetByID(ctx, in.GuideID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := s.checkInvariants(g, &d, civil.DateOf(now)); err != nil {
		return nil, err
	}

	quote, err := pricing.Resolve(g, d.DurationHours, d.GroupType)
	if err != nil {
		return nil, apperror.Detail(ErrValidation, "%s", err.Error())
	}

	req := &Request{
		RequestCode: newRequestCode(d.Date),
		AgencyID:    actor.ID,
		GuideID:     g.ID,
		Details:     d,
		Pricing: Pricing{
			ProposedRate:  quote.FinalRate,
			FinalRate:     quote.FinalRate,
			DepositAmount: quote.DepositAmount,
			PaymentTerms:  pricing.PaymentTerms(quote),
			Currency:      quote.Currency,
		},
		Status:   StatusPending,
		Timeline: Timeline{RequestedAt: now},
	}
	if note != nil {
		note.CreatedAt = now
		req.Messages = append(req.Messages, *note)
	}

	err = s.repo.WithGuideLock(ctx, g.ID, func(ctx context.Context, repo Repository) error {
		existing, err := repo.ListForGuide(ctx, g.ID, d.Date, d.Date)
		if err != nil {
			return err
		}
		if hits := availability.Conflicts(d.Date, d.Window, commitments(existing)); len(hits) > 0 {
			return apperror.Detail(ErrSlotConflict,
				"guide already has a booking overlapping %s on %s", hits[0].Window, d.Date)
		}
		return repo.Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id":   req.ID,
		"request_code": req.RequestCode,
		"guide_id":     req.GuideID,
		"agency_id":    req.AgencyID,
	}).Info("booking request submitted")

	s.notify(ctx, req, notification.EventRequestSubmitted, SenderAgency)
	return req, nil
}

// checkInvariants enforces the guide's booking rules on well-formed details.
func (s *service) checkInvariants(g *guide.Profile, d *ServiceDetails, today civil.Date) error {
	if err := availability.CheckBookable(g, d.Date, today); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return apperror.Detail(ErrInvariantViolation, "%s", appErr.Message)
		}
		return err
	}
	if d.DurationHours < float64(g.MinBookingHours) {
		return apperror.Detail(ErrInvariantViolation,
			"guide requires at least %d hours, requested %.2f", g.MinBookingHours, d.DurationHours)
	}
	if d.GroupSize > g.MaxGroupSize {
		return apperror.Detail(ErrInvariantViolation,
			"group of %d exceeds the guide's maximum of %d", d.GroupSize, g.MaxGroupSize)
	}
	return nil
}

func commitments(reqs []*Request) []availability.Commitment {
	out := make([]availability.Commitment, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, availability.Commitment{
			Date:     r.Details.Date,
			Window:   r.Details.Window,
			Blocking: r.Status.HoldsSlot(),
		})
	}
	return out
}

// newRequestCode builds a code like GB-20260309-0A1B2C3D.
func newRequestCode(date civil.Date) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("GB-%04d%02d%02d-%s", date.Year, int(date.Month), date.Day, suffix)
}

func (s *service) Respond(ctx context.Context, actor auth.Actor, id string, decision Decision) (*Outcome, error) {
	var e Event
	switch decision {
	case DecisionAccept:
		e = EventAccept
	case DecisionReject:
		e = EventReject
	default:
		return nil, apperror.Detail(ErrValidation, "decision must be accept or reject")
	}
	return s.transition(ctx, actor, id, e, nil)
}

func (s *service) Cancel(ctx context.Context, actor auth.Actor, id string) (*Outcome, error) {
	out, err := s.transition(ctx, actor, id, EventCancel, nil)
	if err != nil {
		return nil, err
	}

	g, err := s.guides.GetByID(ctx, out.Request.GuideID)
	if err != nil {
		s.log.WithError(err).WithField("request_id", id).Warn("load cancellation policy failed")
		return out, nil
	}
	out.CancellationPolicy = g.CancellationPolicy
	return out, nil
}

func (s *service) MarkCompleted(ctx context.Context, actor auth.Actor, id string) (*Outcome, error) {
	return s.transition(ctx, actor, id, EventComplete, func(r *Request, now time.Time) error {
		end := r.Details.Date.At(r.Details.Window.End, now.Location())
		if now.Before(end) {
			return apperror.Detail(ErrInvalidTransition,
				"service on %s has not finished yet", r.Details.Date)
		}
		return nil
	})
}

// transition loads the request, applies e and persists it guarded by the
// status it was loaded with. A lost race is re-read once: if the winner
// applied the same event the call is a no-op, otherwise it is rejected.
func (s *service) transition(ctx context.Context, actor auth.Actor, id string, e Event, guard func(*Request, time.Time) error) (*Outcome, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	by, err := side(actor, req)
	if err != nil {
		return nil, err
	}
	if !e.AllowedFor(by) {
		return nil, apperror.Detail(ErrPermissionDenied, "the %s cannot %s a request", by, e)
	}

	if req.Status == e.Target() {
		return &Outcome{Request: req, Changed: false}, nil
	}

	now := s.clock.Now()
	if _, err := req.Status.Next(e); err != nil {
		return nil, err
	}
	if guard != nil {
		if err := guard(req, now); err != nil {
			return nil, err
		}
	}

	from := req.Status
	if _, err := req.Apply(e, by, now); err != nil {
		return nil, err
	}

	if err := s.repo.SaveTransition(ctx, req, from); err != nil {
		if !errors.Is(err, errStale) {
			return nil, err
		}
		current, getErr := s.repo.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if current.Status == e.Target() {
			return &Outcome{Request: current, Changed: false}, nil
		}
		return nil, apperror.Detail(ErrInvalidTransition,
			"cannot %s a %s request", e, current.Status)
	}

	s.log.WithFields(logrus.Fields{
		"request_id": req.ID,
		"event":      e,
		"from":       from,
		"to":         req.Status,
		"by":         by,
	}).Info("booking request transitioned")

	s.notify(ctx, req, eventType(e), by)
	return &Outcome{Request: req, Changed: true}, nil
}

func eventType(e Event) notification.EventType {
	switch e {
	case EventAccept:
		return notification.EventRequestAccepted
	case EventReject:
		return notification.EventRequestRejected
	case EventCancel:
		return notification.EventRequestCancelled
	case EventComplete:
		return notification.EventRequestCompleted
	}
	return notification.EventType(e)
}

func (s *service) AppendMessage(ctx context.Context, actor auth.Actor, id string, text string) (*Message, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	by, err := side(actor, req)
	if err != nil {
		return nil, err
	}

	m, err := NewMessage(by, text, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.AppendMessage(ctx, req.ID, &m); err != nil {
		return nil, err
	}

	s.notify(ctx, req, notification.EventMessagePosted, by)
	return &m, nil
}

func (s *service) MarkHasReview(ctx context.Context, id string) error {
	err := s.repo.MarkHasReview(ctx, id)
	if err != nil && !errors.Is(err, errStale) {
		return err
	}

	req, getErr := s.repo.GetByID(ctx, id)
	if getErr != nil {
		return getErr
	}
	if err == nil {
		s.notify(ctx, req, notification.EventRequestReviewed, SenderAgency)
		return nil
	}
	if req.Status != StatusCompleted {
		return apperror.Detail(ErrInvalidTransition, "only completed requests can be reviewed, request is %s", req.Status)
	}
	return ErrDuplicateReview
}

func (s *service) GetByID(ctx context.Context, actor auth.Actor, id string) (*Request, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := side(actor, req); err != nil {
		return nil, err
	}
	return req, nil
}

// List scopes the filter to the caller: agencies see what they sent, guides what they received.
func (s *service) List(ctx context.Context, actor auth.Actor, filter Filter) ([]*Request, int, error) {
	switch senderOf(actor) {
	case SenderAgency:
		filter.AgencyID = actor.ID
	case SenderGuide:
		filter.GuideID = actor.ID
	default:
		return nil, 0, ErrPermissionDenied
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperror.Detail(ErrValidation, "unknown status %q", filter.Status)
	}
	return s.repo.List(ctx, filter)
}

func (s *service) Availability(ctx context.Context, guideID string, ym civil.YearMonth) (map[civil.Date][]availability.Slot, error) {
	if err := ym.Validate(); err != nil {
		return nil, apperror.Detail(availability.ErrInvalidRange, "invalid month %s", ym)
	}

	g, err := s.guides.GetByID(ctx, guideID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.ListForGuide(ctx, guideID, ym.First(), ym.Last())
	if err != nil {
		return nil, err
	}
	return s.calculator.ComputeMonth(g, ym, commitments(existing), s.today())
}

func (s *service) Quote(ctx context.Context, guideID string, durationHours float64, groupType string) (pricing.Quote, error) {
	g, err := s.guides.GetByID(ctx, guideID)
	if err != nil {
		return pricing.Quote{}, err
	}
	return pricing.Resolve(g, durationHours, strings.ToLower(strings.TrimSpace(groupType)))
}

// notify delivers e without letting the caller's cancellation or a sink failure
// affect the command that already succeeded.
func (s *service) notify(ctx context.Context, r *Request, t notification.EventType, by Sender) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	e := notification.Event{
		ID:          uuid.NewString(),
		Type:        t,
		RequestID:   r.ID,
		RequestCode: r.RequestCode,
		AgencyID:    r.AgencyID,
		GuideID:     r.GuideID,
		Status:      string(r.Status),
		ServiceDate: r.Details.Date.String(),
		Actor:       string(by),
		OccurredAt:  s.clock.Now(),
	}
	if err := s.notifier.Notify(ctx, e); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"event_id":   e.ID,
			"event_type": e.Type,
			"request_id": r.ID,
		}).Warn("notification failed")
	}
}

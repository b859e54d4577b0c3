package review

import (
	"context"
	"strings"

	"github.com/nekogravitycat/guide-booking-backend/internal/auth"
	"github.com/nekogravitycat/guide-booking-backend/internal/booking"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/validation"
	"github.com/sirupsen/logrus"
)

// BookingLifecycle is what reviews need from the booking module.
type BookingLifecycle interface {
	GetByID(ctx context.Context, actor auth.Actor, id string) (*booking.Request, error)
	MarkHasReview(ctx context.Context, id string) error
}

type CreateInput struct {
	Ratings    map[Category]int
	Comment    string
	Highlights []string
}

type Service interface {
	// Create stores the review, then flags the request as reviewed.
	Create(ctx context.Context, actor auth.Actor, requestID string, in CreateInput) (*Review, error)
	GetByRequest(ctx context.Context, actor auth.Actor, requestID string) (*Review, error)
	ListForGuide(ctx context.Context, filter Filter) ([]*Review, int, error)
	GuideSummary(ctx context.Context, guideID string) (*Summary, error)
}

type reviewRules struct {
	Ratings    map[string]int `validate:"len=5,dive,keys,oneof=knowledge communication punctuality professionalism value,endkeys,min=1,max=5"`
	Comment    string         `validate:"max=4000"`
	Highlights []string       `validate:"max=10,dive,required,max=100"`
}

type service struct {
	repo      Repository
	bookings  BookingLifecycle
	validator *validation.Validator
	log       logrus.FieldLogger
}

func NewService(repo Repository, bookings BookingLifecycle, log logrus.FieldLogger) Service {
	return &service{
		repo:      repo,
		bookings:  bookings,
		validator: validation.New(),
		log:       log.WithField("component", "review"),
	}
}

func (s *service) validate(in *CreateInput) error {
	ratings := make(map[string]int, len(in.Ratings))
	for c, v := range in.Ratings {
		ratings[string(c)] = v
	}
	err := s.validator.Struct(reviewRules{
		Ratings:    ratings,
		Comment:    in.Comment,
		Highlights: in.Highlights,
	})
	if err != nil {
		return apperror.Detail(ErrInvalidReview, "invalid review: %s", err.Error())
	}
	return nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, requestID string, in CreateInput) (*Review, error) {
	if !actor.IsAgency() {
		return nil, ErrPermissionDenied
	}

	in.Comment = strings.TrimSpace(in.Comment)
	highlights := make([]string, 0, len(in.Highlights))
	for _, h := range in.Highlights {
		highlights = append(highlights, strings.TrimSpace(h))
	}
	in.Highlights = highlights
	if err := s.validate(&in); err != nil {
		return nil, err
	}

	req, err := s.bookings.GetByID(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}
	if req.AgencyID != actor.ID {
		return nil, ErrPermissionDenied
	}
	if req.Status != booking.StatusCompleted {
		return nil, apperror.Detail(booking.ErrInvalidTransition,
			"only completed requests can be reviewed, request is %s", req.Status)
	}
	if req.HasReview {
		return nil, booking.ErrDuplicateReview
	}

	rv := &Review{
		RequestID:  req.ID,
		AgencyID:   req.AgencyID,
		GuideID:    req.GuideID,
		Ratings:    in.Ratings,
		Overall:    Overall(in.Ratings),
		Comment:    in.Comment,
		Highlights: in.Highlights,
	}
	if err := s.repo.Create(ctx, rv); err != nil {
		return nil, err
	}

	if err := s.bookings.MarkHasReview(ctx, req.ID); err != nil {
		if delErr := s.repo.Delete(ctx, rv.ID); delErr != nil {
			s.log.WithError(delErr).WithField("review_id", rv.ID).Error("roll back review failed")
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"review_id":  rv.ID,
		"request_id": rv.RequestID,
		"guide_id":   rv.GuideID,
		"overall":    rv.Overall,
	}).Info("review created")
	return rv, nil
}

func (s *service) GetByRequest(ctx context.Context, actor auth.Actor, requestID string) (*Review, error) {
	if _, err := s.bookings.GetByID(ctx, actor, requestID); err != nil {
		return nil, err
	}
	return s.repo.GetByRequest(ctx, requestID)
}

func (s *service) ListForGuide(ctx context.Context, filter Filter) ([]*Review, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) GuideSummary(ctx context.Context, guideID string) (*Summary, error) {
	return s.repo.Summary(ctx, guideID)
}

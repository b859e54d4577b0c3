package guide

import (
	"context"
	"time"

	"github.com/nekogravitycat/guide-booking-backend/internal/auth"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/civil"
)

// ProfileInput carries the editable fields of a guide profile.
type ProfileInput struct {
	DisplayName        string
	Bio                string
	Languages          []string
	WorkingDays        []time.Weekday
	WorkingBlocks      []civil.TimeRange
	AdvanceBookingDays int
	HourlyRate         float64
	HalfDayRate        float64
	FullDayRate        float64
	Currency           string
	MaxGroupSize       int
	MinBookingHours    int
	RequiresDeposit    bool
	DepositPercentage  int
	CancellationPolicy string
	GroupSurcharges    map[string]float64
}

type Service interface {
	GetByID(ctx context.Context, id string) (*Profile, error)
	List(ctx context.Context, filter Filter) ([]*Profile, int, error)
	// Save creates or replaces the calling guide's own profile.
	Save(ctx context.Context, actor auth.Actor, in ProfileInput) (*Profile, error)
	SetPhoto(ctx context.Context, actor auth.Actor, photoID string) error
}

type service struct {
	repo            Repository
	validator       *profileValidator
	defaultCurrency string
}

func NewService(repo Repository, defaultCurrency string) Service {
	return &service{
		repo:            repo,
		validator:       newProfileValidator(),
		defaultCurrency: defaultCurrency,
	}
}

func (s *service) GetByID(ctx context.Context, id string) (*Profile, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Profile, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) Save(ctx context.Context, actor auth.Actor, in ProfileInput) (*Profile, error) {
	if !actor.IsGuide() {
		return nil, ErrPermissionDenied
	}

	p := &Profile{
		ID:                 actor.ID,
		DisplayName:        in.DisplayName,
		Bio:                in.Bio,
		Languages:          append([]string(nil), in.Languages...),
		WorkingDays:        append([]time.Weekday(nil), in.WorkingDays...),
		WorkingBlocks:      append([]civil.TimeRange(nil), in.WorkingBlocks...),
		AdvanceBookingDays: in.AdvanceBookingDays,
		HourlyRate:         in.HourlyRate,
		HalfDayRate:        in.HalfDayRate,
		FullDayRate:        in.FullDayRate,
		Currency:           in.Currency,
		MaxGroupSize:       in.MaxGroupSize,
		MinBookingHours:    in.MinBookingHours,
		RequiresDeposit:    in.RequiresDeposit,
		DepositPercentage:  in.DepositPercentage,
		CancellationPolicy: in.CancellationPolicy,
		GroupSurcharges:    in.GroupSurcharges,
	}
	if p.Currency == "" {
		p.Currency = s.defaultCurrency
	}

	normalize(p)
	if err := s.validator.Validate(p); err != nil {
		return nil, err
	}

	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) SetPhoto(ctx context.Context, actor auth.Actor, photoID string) error {
	if !actor.IsGuide() {
		return ErrPermissionDenied
	}
	return s.repo.SetPhoto(ctx, actor.ID, photoID)
}

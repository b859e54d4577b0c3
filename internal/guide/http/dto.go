package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/nekogravitycat/guide-booking-backend/internal/guide"
	"github.com/nekogravitycat/guide-booking-backend/internal/photo"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/civil"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/request"
)

// ListGuidesRequest defines query parameters for listing guides.
type ListGuidesRequest struct {
	request.ListParams
	Language string `form:"language"`
}

// SaveProfileRequest is the body of PUT /guides/me.
type SaveProfileRequest struct {
	DisplayName        string             `json:"display_name" binding:"required"`
	Bio                string             `json:"bio"`
	Languages          []string           `json:"languages" binding:"required,min=1"`
	WorkingDays        []string           `json:"working_days" binding:"required,min=1"`
	WorkingBlocks      []civil.TimeRange  `json:"working_blocks"`
	AdvanceBookingDays int                `json:"advance_booking_days" binding:"gte=0"`
	HourlyRate         float64            `json:"hourly_rate" binding:"required,gt=0"`
	HalfDayRate        float64            `json:"half_day_rate" binding:"required,gt=0"`
	FullDayRate        float64            `json:"full_day_rate" binding:"required,gt=0"`
	Currency           string             `json:"currency"`
	MaxGroupSize       int                `json:"max_group_size" binding:"required,min=1"`
	MinBookingHours    int                `json:"min_booking_hours" binding:"required,min=1"`
	RequiresDeposit    bool               `json:"requires_deposit"`
	DepositPercentage  int                `json:"deposit_percentage" binding:"gte=0,lte=100"`
	CancellationPolicy string             `json:"cancellation_policy"`
	GroupSurcharges    map[string]float64 `json:"group_surcharges"`
}

// ToInput converts the payload into the service input, parsing weekday names.
func (r *SaveProfileRequest) ToInput() (guide.ProfileInput, error) {
	days := make([]time.Weekday, 0, len(r.WorkingDays))
	for _, name := range r.WorkingDays {
		d, err := parseWeekday(name)
		if err != nil {
			return guide.ProfileInput{}, err
		}
		days = append(days, d)
	}

	return guide.ProfileInput{
		DisplayName:        r.DisplayName,
		Bio:                r.Bio,
		Languages:          r.Languages,
		WorkingDays:        days,
		WorkingBlocks:      r.WorkingBlocks,
		AdvanceBookingDays: r.AdvanceBookingDays,
		HourlyRate:         r.HourlyRate,
		HalfDayRate:        r.HalfDayRate,
		FullDayRate:        r.FullDayRate,
		Currency:           r.Currency,
		MaxGroupSize:       r.MaxGroupSize,
		MinBookingHours:    r.MinBookingHours,
		RequiresDeposit:    r.RequiresDeposit,
		DepositPercentage:  r.DepositPercentage,
		CancellationPolicy: r.CancellationPolicy,
		GroupSurcharges:    r.GroupSurcharges,
	}, nil
}

func parseWeekday(name string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), strings.TrimSpace(name)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", name)
}

type RateCard struct {
	HourlyRate      float64            `json:"hourly_rate"`
	HalfDayRate     float64            `json:"half_day_rate"`
	FullDayRate     float64            `json:"full_day_rate"`
	Currency        string             `json:"currency"`
	GroupSurcharges map[string]float64 `json:"group_surcharges"`
}

type GuideResponse struct {
	ID                 string            `json:"id"`
	DisplayName        string            `json:"display_name"`
	Bio                string            `json:"bio"`
	Languages          []string          `json:"languages"`
	WorkingDays        []string          `json:"working_days"`
	WorkingBlocks      []civil.TimeRange `json:"working_blocks"`
	AdvanceBookingDays int               `json:"advance_booking_days"`
	Rates              RateCard          `json:"rates"`
	MaxGroupSize       int               `json:"max_group_size"`
	MinBookingHours    int               `json:"min_booking_hours"`
	RequiresDeposit    bool              `json:"requires_deposit"`
	DepositPercentage  int               `json:"deposit_percentage"`
	CancellationPolicy string            `json:"cancellation_policy"`
	PhotoURL           *string           `json:"photo_url"`
	ThumbnailURL       *string           `json:"thumbnail_url"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

func NewGuideResponse(p *guide.Profile) GuideResponse {
	days := make([]string, len(p.WorkingDays))
	for i, d := range p.WorkingDays {
		days[i] = strings.ToLower(d.String())
	}
	blocks := p.WorkingBlocks
	if blocks == nil {
		blocks = []civil.TimeRange{}
	}

	resp := GuideResponse{
		ID:                 p.ID,
		DisplayName:        p.DisplayName,
		Bio:                p.Bio,
		Languages:          p.Languages,
		WorkingDays:        days,
		WorkingBlocks:      blocks,
		AdvanceBookingDays: p.AdvanceBookingDays,
		Rates: RateCard{
			HourlyRate:      p.HourlyRate,
			HalfDayRate:     p.HalfDayRate,
			FullDayRate:     p.FullDayRate,
			Currency:        p.Currency,
			GroupSurcharges: p.GroupSurcharges,
		},
		MaxGroupSize:       p.MaxGroupSize,
		MinBookingHours:    p.MinBookingHours,
		RequiresDeposit:    p.RequiresDeposit,
		DepositPercentage:  p.DepositPercentage,
		CancellationPolicy: p.CancellationPolicy,
		UpdatedAt:          p.UpdatedAt,
	}

	if p.PhotoID != nil {
		url := photo.URL(*p.PhotoID)
		thumb := photo.ThumbnailURL(*p.PhotoID)
		resp.PhotoURL = &url
		resp.ThumbnailURL = &thumb
	}
	return resp
}

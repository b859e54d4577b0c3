package http

import (
	"sort"
	"time"

	"github.com/nekogravitycat/guide-booking-backend/internal/availability"
	"github.com/nekogravitycat/guide-booking-backend/internal/booking"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/civil"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/guide-booking-backend/internal/pricing"
)

// ListBookingsRequest defines query parameters for listing booking requests.
type ListBookingsRequest struct {
	request.ListParams
	Status string `form:"status" binding:"omitempty,oneof=pending accepted rejected completed cancelled"`
	From   string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To     string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// ToFilter parses the date bounds. Binding has already checked their format.
func (r *ListBookingsRequest) ToFilter() (booking.Filter, error) {
	f := booking.Filter{
		Status:   booking.Status(r.Status),
		Page:     r.Page,
		PageSize: r.PageSize,
	}
	if r.From != "" {
		d, err := civil.ParseDate(r.From)
		if err != nil {
			return f, err
		}
		f.From = &d
	}
	if r.To != "" {
		d, err := civil.ParseDate(r.To)
		if err != nil {
			return f, err
		}
		f.To = &d
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return f, civil.ErrInvalidRange
	}
	return f, nil
}

// SubmitBookingRequest is the body of POST /booking-requests.
type SubmitBookingRequest struct {
	GuideID             string          `json:"guide_id" binding:"required,uuid"`
	ServiceType         string          `json:"service_type" binding:"required"`
	Date                civil.Date      `json:"date"`
	StartTime           civil.TimeOfDay `json:"start_time"`
	EndTime             civil.TimeOfDay `json:"end_time"`
	DurationHours       float64         `json:"duration_hours"`
	Location            string          `json:"location" binding:"required"`
	GroupSize           int             `json:"group_size" binding:"required"`
	GroupType           string          `json:"group_type"`
	Languages           []string        `json:"languages" binding:"required"`
	SpecialRequirements *string         `json:"special_requirements"`
	Note                string          `json:"note"`
}

func (r *SubmitBookingRequest) ToInput() booking.SubmitInput {
	return booking.SubmitInput{
		GuideID: r.GuideID,
		Details: booking.ServiceDetails{
			Type:                booking.ServiceType(r.ServiceType),
			Date:                r.Date,
			Window:              civil.TimeRange{Start: r.StartTime, End: r.EndTime},
			DurationHours:       r.DurationHours,
			Location:            r.Location,
			GroupSize:           r.GroupSize,
			GroupType:           r.GroupType,
			Languages:           r.Languages,
			SpecialRequirements: r.SpecialRequirements,
		},
		Note: r.Note,
	}
}

type RespondRequest struct {
	Decision string `json:"decision" binding:"required,oneof=accept reject"`
}

type AppendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

type AvailabilityQuery struct {
	Month string `form:"month" binding:"required"`
}

type QuoteQuery struct {
	DurationHours float64 `form:"duration_hours" binding:"required,gt=0"`
	GroupType     string  `form:"group_type"`
}

type ServiceDetailsResponse struct {
	Type                string     `json:"type"`
	Date                civil.Date `json:"date"`
	StartTime           string     `json:"start_time"`
	EndTime             string     `json:"end_time"`
	DurationHours       float64    `json:"duration_hours"`
	Location            string     `json:"location"`
	GroupSize           int        `json:"group_size"`
	GroupType           string     `json:"group_type,omitempty"`
	Languages           []string   `json:"languages"`
	SpecialRequirements *string    `json:"special_requirements,omitempty"`
}

type PricingResponse struct {
	ProposedRate  float64 `json:"proposed_rate"`
	FinalRate     float64 `json:"final_rate"`
	DepositAmount float64 `json:"deposit_amount"`
	PaymentTerms  string  `json:"payment_terms"`
	Currency      string  `json:"currency"`
}

type TimelineResponse struct {
	RequestedAt time.Time  `json:"requested_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

type MessageResponse struct {
	Seq       int64     `json:"seq"`
	From      string    `json:"from"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func NewMessageResponse(m booking.Message) MessageResponse {
	return MessageResponse{
		Seq:       m.Seq,
		From:      string(m.From),
		Message:   m.Body,
		Timestamp: m.CreatedAt,
	}
}

type BookingResponse struct {
	ID             string                 `json:"id"`
	RequestCode    string                 `json:"request_code"`
	AgencyID       string                 `json:"agency_id"`
	GuideID        string                 `json:"guide_id"`
	ServiceDetails ServiceDetailsResponse `json:"service_details"`
	Pricing        PricingResponse        `json:"pricing"`
	Status         string                 `json:"status"`
	Timeline       TimelineResponse       `json:"timeline"`
	Messages       []MessageResponse      `json:"messages,omitempty"`
	HasReview      bool                   `json:"has_review"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

func NewBookingResponse(r *booking.Request) BookingResponse {
	d := r.Details
	resp := BookingResponse{
		ID:          r.ID,
		RequestCode: r.RequestCode,
		AgencyID:    r.AgencyID,
		GuideID:     r.GuideID,
		ServiceDetails: ServiceDetailsResponse{
			Type:                string(d.Type),
			Date:                d.Date,
			StartTime:           d.Window.Start.String(),
			EndTime:             d.Window.End.String(),
			DurationHours:       d.DurationHours,
			Location:            d.Location,
			GroupSize:           d.GroupSize,
			GroupType:           d.GroupType,
			Languages:           d.Languages,
			SpecialRequirements: d.SpecialRequirements,
		},
		Pricing: PricingResponse{
			ProposedRate:  r.Pricing.ProposedRate,
			FinalRate:     r.Pricing.FinalRate,
			DepositAmount: r.Pricing.DepositAmount,
			PaymentTerms:  r.Pricing.PaymentTerms,
			Currency:      r.Pricing.Currency,
		},
		Status: string(r.Status),
		Timeline: TimelineResponse{
			RequestedAt: r.Timeline.RequestedAt,
			RespondedAt: r.Timeline.RespondedAt,
			AcceptedAt:  r.Timeline.AcceptedAt,
			CompletedAt: r.Timeline.CompletedAt,
			CancelledAt: r.Timeline.CancelledAt,
		},
		HasReview: r.HasReview,
		UpdatedAt: r.UpdatedAt,
	}
	for _, m := range r.Messages {
		resp.Messages = append(resp.Messages, NewMessageResponse(m))
	}
	return resp
}

// OutcomeResponse is returned by lifecycle commands. Changed is false for a retried command.
type OutcomeResponse struct {
	BookingResponse
	Changed            bool   `json:"changed"`
	CancellationPolicy string `json:"cancellation_policy,omitempty"`
}

func NewOutcomeResponse(o *booking.Outcome) OutcomeResponse {
	return OutcomeResponse{
		BookingResponse:    NewBookingResponse(o.Request),
		Changed:            o.Changed,
		CancellationPolicy: o.CancellationPolicy,
	}
}

type SlotResponse struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Booked    bool   `json:"booked"`
}

type DayResponse struct {
	Date  civil.Date     `json:"date"`
	Slots []SlotResponse `json:"slots"`
}

type AvailabilityResponse struct {
	GuideID string        `json:"guide_id"`
	Month   string        `json:"month"`
	Days    []DayResponse `json:"days"`
}

// NewAvailabilityResponse lists the offered days in calendar order.
func NewAvailabilityResponse(guideID string, ym civil.YearMonth, days map[civil.Date][]availability.Slot) AvailabilityResponse {
	resp := AvailabilityResponse{GuideID: guideID, Month: ym.String(), Days: make([]DayResponse, 0, len(days))}
	for date, slots := range days {
		day := DayResponse{Date: date, Slots: make([]SlotResponse, 0, len(slots))}
		for _, s := range slots {
			day.Slots = append(day.Slots, SlotResponse{
				StartTime: s.Window.Start.String(),
				EndTime:   s.Window.End.String(),
				Booked:    s.Booked,
			})
		}
		resp.Days = append(resp.Days, day)
	}
	sort.Slice(resp.Days, func(i, j int) bool { return resp.Days[i].Date.Before(resp.Days[j].Date) })
	return resp
}

type QuoteResponse struct {
	Tier              string  `json:"tier"`
	BaseRate          float64 `json:"base_rate"`
	Surcharge         float64 `json:"surcharge"`
	FinalRate         float64 `json:"final_rate"`
	DepositPercentage int     `json:"deposit_percentage"`
	DepositAmount     float64 `json:"deposit_amount"`
	PaymentTerms      string  `json:"payment_terms"`
	Currency          string  `json:"currency"`
}

func NewQuoteResponse(q pricing.Quote) QuoteResponse {
	return QuoteResponse{
		Tier:              string(q.Tier),
		BaseRate:          q.BaseRate,
		Surcharge:         q.Surcharge,
		FinalRate:         q.FinalRate,
		DepositPercentage: q.DepositPercentage,
		DepositAmount:     q.DepositAmount,
		PaymentTerms:      pricing.PaymentTerms(q),
		Currency:          q.Currency,
	}
}

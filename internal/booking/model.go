package booking

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/civil"
)

var (
	ErrNotFound           = apperror.New(http.StatusNotFound, "booking request not found")
	ErrValidation         = apperror.New(http.StatusBadRequest, "invalid booking request")
	ErrInvariantViolation = apperror.New(http.StatusUnprocessableEntity, "booking request breaks the guide's booking rules")
	ErrSlotConflict       = apperror.New(http.StatusConflict, "requested time overlaps an existing booking")
	ErrInvalidTransition  = apperror.New(http.StatusConflict, "action not allowed in the request's current status")
	ErrDuplicateReview    = apperror.New(http.StatusConflict, "request already has a review")
	ErrPermissionDenied   = apperror.New(http.StatusForbidden, "permission denied")
)

type ServiceType string

const (
	ServiceTour     ServiceType = "tour"
	ServiceTransfer ServiceType = "transfer"
	ServiceCustom   ServiceType = "custom"
)

// Sender tags who wrote a message.
type Sender string

const (
	SenderAgency Sender = "agency"
	SenderGuide  Sender = "guide"
	SenderSystem Sender = "system"
)

// ServiceDetails describes the engagement an agency asks for.
type ServiceDetails struct {
	Type                ServiceType
	Date                civil.Date
	Window              civil.TimeRange
	DurationHours       float64
	Location            string
	GroupSize           int
	GroupType           string
	Languages           []string
	SpecialRequirements *string
}

type Pricing struct {
	ProposedRate  float64
	FinalRate     float64
	DepositAmount float64
	PaymentTerms  string
	Currency      string
}

// Timeline stamps are set once and never move backwards.
type Timeline struct {
	RequestedAt time.Time
	RespondedAt *time.Time
	AcceptedAt  *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
}

// Message is one entry of a request's append-only thread. Seq is assigned on
// insert and defines display order; zero means not yet stored.
type Message struct {
	Seq       int64
	From      Sender
	Body      string
	CreatedAt time.Time
}

// Request is one proposed engagement between an agency and a guide.
type Request struct {
	ID          string
	RequestCode string
	AgencyID    string
	GuideID     string
	Details     ServiceDetails
	Pricing     Pricing
	Status      Status
	Timeline    Timeline
	Messages    []Message
	HasReview   bool
	UpdatedAt   time.Time
}

// IsParticipant reports whether accountID is the agency or the guide of the request.
func (r *Request) IsParticipant(accountID string) bool {
	return accountID != "" && (accountID == r.AgencyID || accountID == r.GuideID)
}

// PendingMessages returns messages appended in memory but not yet stored.
func (r *Request) PendingMessages() []Message {
	var out []Message
	for _, m := range r.Messages {
		if m.Seq == 0 {
			out = append(out, m)
		}
	}
	return out
}

type Filter struct {
	AgencyID string
	GuideID  string
	Status   Status
	From     *civil.Date // service date on or after
	To       *civil.Date // service date on or before
	Page     int
	PageSize int
}

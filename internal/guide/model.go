package guide

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/civil"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "guide not found")
	ErrInvalidProfile   = apperror.New(http.StatusBadRequest, "invalid guide profile")
	ErrPermissionDenied = apperror.New(http.StatusForbidden, "only the guide may edit this profile")
)

// Profile is a guide's public card: schedule, rate card and booking rules.
type Profile struct {
	ID                 string // same as the guide's account id
	DisplayName        string
	Bio                string
	Languages          []string
	WorkingDays        []time.Weekday
	WorkingBlocks      []civil.TimeRange // empty means the platform default blocks
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
	PhotoID            *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// WorksOn reports whether the guide accepts bookings on the given weekday.
func (p *Profile) WorksOn(day time.Weekday) bool {
	for _, d := range p.WorkingDays {
		if d == day {
			return true
		}
	}
	return false
}

// Speaks reports whether the guide lists lang among their languages.
func (p *Profile) Speaks(lang string) bool {
	for _, l := range p.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

type Filter struct {
	Language string
	Page     int
	PageSize int
}

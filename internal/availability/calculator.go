// Package availability derives a guide's bookable slots from their weekly
// schedule and the bookings already holding time on their calendar.
package availability

import (
	"net/http"

	"github.com/nekogravitycat/guide-booking-backend/internal/guide"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/civil"
)

var (
	ErrInvalidRange = apperror.New(http.StatusBadRequest, "invalid month")
	ErrNotBookable  = apperror.New(http.StatusUnprocessableEntity, "date is not bookable")
)

// Slot is one bookable block on a given day.
type Slot struct {
	Date   civil.Date
	Window civil.TimeRange
	Booked bool
}

// Commitment is an existing booking's claim on the calendar.
// Only blocking commitments mark slots as booked.
type Commitment struct {
	Date     civil.Date
	Window   civil.TimeRange
	Blocking bool
}

// Calculator is stateless apart from the platform's default working blocks.
type Calculator struct {
	defaultBlocks []civil.TimeRange
}

func NewCalculator(defaultBlocks []civil.TimeRange) *Calculator {
	return &Calculator{defaultBlocks: append([]civil.TimeRange(nil), defaultBlocks...)}
}

// BlocksFor returns the blocks a guide's working day is split into.
func (c *Calculator) BlocksFor(g *guide.Profile) []civil.TimeRange {
	if len(g.WorkingBlocks) > 0 {
		return g.WorkingBlocks
	}
	return c.defaultBlocks
}

// EarliestBookable is the first date a new request may target.
func EarliestBookable(g *guide.Profile, today civil.Date) civil.Date {
	lead := g.AdvanceBookingDays
	if lead < 0 {
		lead = 0
	}
	return today.AddDays(lead)
}

// CheckBookable reports why date cannot be requested, or nil when it can.
// ComputeMonth and request submission share this rule.
func CheckBookable(g *guide.Profile, date, today civil.Date) error {
	if date.Before(today) {
		return apperror.Detail(ErrNotBookable, "date %s is in the past", date)
	}
	if earliest := EarliestBookable(g, today); date.Before(earliest) {
		return apperror.Detail(ErrNotBookable,
			"guide requires %d days advance booking, earliest date is %s", g.AdvanceBookingDays, earliest)
	}
	if !g.WorksOn(date.Weekday()) {
		return apperror.Detail(ErrNotBookable, "guide does not work on %s", date.Weekday())
	}
	return nil
}

// ComputeMonth returns the slots of every offered day in ym. Days before the
// lead-time horizon are omitted; non-working days map to an empty slice.
func (c *Calculator) ComputeMonth(g *guide.Profile, ym civil.YearMonth, commitments []Commitment, today civil.Date) (map[civil.Date][]Slot, error) {
	if err := ym.Validate(); err != nil {
		return nil, apperror.Detail(ErrInvalidRange, "invalid month %04d-%02d", ym.Year, int(ym.Month))
	}

	byDate := make(map[civil.Date][]civil.TimeRange)
	for _, cm := range commitments {
		if cm.Blocking {
			byDate[cm.Date] = append(byDate[cm.Date], cm.Window)
		}
	}

	blocks := c.BlocksFor(g)
	earliest := EarliestBookable(g, today)
	days := make(map[civil.Date][]Slot)

	last := ym.Last()
	for d := ym.First(); !d.After(last); d = d.AddDays(1) {
		if d.Before(earliest) {
			continue
		}
		if !g.WorksOn(d.Weekday()) {
			days[d] = []Slot{}
			continue
		}

		slots := make([]Slot, 0, len(blocks))
		for _, b := range blocks {
			slots = append(slots, Slot{
				Date:   d,
				Window: b,
				Booked: overlapsAny(b, byDate[d]),
			})
		}
		days[d] = slots
	}

	return days, nil
}

// Conflicts returns the blocking commitments that overlap window on date.
func Conflicts(date civil.Date, window civil.TimeRange, commitments []Commitment) []Commitment {
	var out []Commitment
	for _, cm := range commitments {
		if cm.Blocking && cm.Date == date && cm.Window.Overlaps(window) {
			out = append(out, cm)
		}
	}
	return out
}

func overlapsAny(window civil.TimeRange, taken []civil.TimeRange) bool {
	for _, t := range taken {
		if window.Overlaps(t) {
			return true
		}
	}
	return false
}

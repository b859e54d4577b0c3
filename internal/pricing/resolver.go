// Package pricing turns a requested duration and a guide's rate card into a price.
package pricing

import (
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/nekogravitycat/guide-booking-backend/internal/guide"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/apperror"
)

const (
	halfDayMaxHours = 4
	fullDayMaxHours = 8
)

var ErrInvalidDuration = apperror.New(http.StatusBadRequest, "duration must be greater than zero")

type Tier string

const (
	TierHalfDay Tier = "half_day"
	TierFullDay Tier = "full_day"
	TierHourly  Tier = "hourly"
)

// Quote is the resolved price of one booking.
type Quote struct {
	Tier              Tier
	BaseRate          float64
	Surcharge         float64
	FinalRate         float64
	DepositPercentage int
	DepositAmount     float64
	Currency          string
}

// TierFor selects the rate tier. Bounds are inclusive: exactly 4 hours is half day, exactly 8 is full day.
func TierFor(durationHours float64) Tier {
	switch {
	case durationHours <= halfDayMaxHours:
		return TierHalfDay
	case durationHours <= fullDayMaxHours:
		return TierFullDay
	default:
		return TierHourly
	}
}

// Resolve prices a booking. Unknown group types add no surcharge.
func Resolve(g *guide.Profile, durationHours float64, groupType string) (Quote, error) {
	if durationHours <= 0 || math.IsNaN(durationHours) || math.IsInf(durationHours, 0) {
		return Quote{}, ErrInvalidDuration
	}

	q := Quote{Tier: TierFor(durationHours), Currency: g.Currency}
	switch q.Tier {
	case TierHalfDay:
		q.BaseRate = g.HalfDayRate
	case TierFullDay:
		q.BaseRate = g.FullDayRate
	default:
		q.BaseRate = Round2(g.HourlyRate * durationHours)
	}

	if groupType != "" {
		q.Surcharge = g.GroupSurcharges[groupType]
	}
	q.FinalRate = Round2(q.BaseRate + q.Surcharge)

	if g.RequiresDeposit {
		q.DepositPercentage = g.DepositPercentage
		q.DepositAmount = Round2(q.FinalRate * float64(g.DepositPercentage) / 100)
	}
	return q, nil
}

// PaymentTerms renders the human-readable terms stored with a request.
func PaymentTerms(q Quote) string {
	var b strings.Builder
	if q.DepositAmount > 0 {
		fmt.Fprintf(&b, "%d%% deposit (%.2f %s) due on acceptance, balance of %.2f %s after the service",
			q.DepositPercentage, q.DepositAmount, q.Currency, Round2(q.FinalRate-q.DepositAmount), q.Currency)
	} else {
		fmt.Fprintf(&b, "full amount of %.2f %s due after the service", q.FinalRate, q.Currency)
	}
	return b.String()
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

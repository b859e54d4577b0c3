package pricing

import (
	"testing"

	"github.com/nekogravitycat/guide-booking-backend/internal/guide"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rateCard() *guide.Profile {
	return &guide.Profile{
		HourlyRate:  25,
		HalfDayRate: 90,
		FullDayRate: 150,
		Currency:    "USD",
		GroupSurcharges: map[string]float64{
			"school":    20,
			"corporate": 45.5,
		},
	}
}

func TestResolveTiers(t *testing.T) {
	tests := []struct {
		duration float64
		tier     Tier
		want     float64
	}{
		{0.5, TierHalfDay, 90},
		{4, TierHalfDay, 90},
		{4.25, TierFullDay, 150},
		{8, TierFullDay, 150},
		{8.5, TierHourly, 212.5},
		{9, TierHourly, 225},
		{12, TierHourly, 300},
	}

	for _, tt := range tests {
		q, err := Resolve(rateCard(), tt.duration, "")
		require.NoError(t, err)
		assert.Equal(t, tt.tier, q.Tier, "duration %v", tt.duration)
		assert.Equal(t, tt.want, q.FinalRate, "duration %v", tt.duration)
		assert.Equal(t, "USD", q.Currency)
	}
}

func TestResolveTierRuleHoldsForAllDurations(t *testing.T) {
	g := rateCard()
	for quarter := 1; quarter <= 16*4; quarter++ {
		d := float64(quarter) / 4

		q, err := Resolve(g, d, "")
		require.NoError(t, err)

		switch {
		case d <= 4:
			assert.Equal(t, g.HalfDayRate, q.FinalRate, "d=%v", d)
		case d <= 8:
			assert.Equal(t, g.FullDayRate, q.FinalRate, "d=%v", d)
		default:
			assert.Equal(t, Round2(g.HourlyRate*d), q.FinalRate, "d=%v", d)
		}
	}
}

func TestResolveSurcharges(t *testing.T) {
	q, err := Resolve(rateCard(), 4, "school")
	require.NoError(t, err)
	assert.Equal(t, 90.0, q.BaseRate)
	assert.Equal(t, 20.0, q.Surcharge)
	assert.Equal(t, 110.0, q.FinalRate)

	q, err = Resolve(rateCard(), 9, "corporate")
	require.NoError(t, err)
	assert.Equal(t, 270.5, q.FinalRate)

	q, err = Resolve(rateCard(), 4, "pirates")
	require.NoError(t, err, "unknown group types never fail pricing")
	assert.Equal(t, 0.0, q.Surcharge)
	assert.Equal(t, 90.0, q.FinalRate)
}

func TestResolveDeposit(t *testing.T) {
	g := rateCard()
	g.RequiresDeposit = true
	g.DepositPercentage = 33

	q, err := Resolve(g, 9, "")
	require.NoError(t, err)
	assert.Equal(t, 225.0, q.FinalRate)
	assert.Equal(t, 74.25, q.DepositAmount)
	assert.Equal(t, 33, q.DepositPercentage)

	g.RequiresDeposit = false
	q, err = Resolve(g, 9, "")
	require.NoError(t, err)
	assert.Equal(t, 0.0, q.DepositAmount)
}

func TestResolveRejectsNonPositiveDuration(t *testing.T) {
	for _, d := range []float64{0, -1} {
		_, err := Resolve(rateCard(), d, "")
		assert.ErrorIs(t, err, ErrInvalidDuration)
	}
}

func TestPaymentTerms(t *testing.T) {
	assert.Equal(t,
		"30% deposit (27.00 USD) due on acceptance, balance of 63.00 USD after the service",
		PaymentTerms(Quote{FinalRate: 90, DepositPercentage: 30, DepositAmount: 27, Currency: "USD"}))
	assert.Equal(t,
		"full amount of 150.00 USD due after the service",
		PaymentTerms(Quote{FinalRate: 150, Currency: "USD"}))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 0.13, Round2(0.125))
	assert.Equal(t, 10.0, Round2(9.999))
	assert.Equal(t, 1.0, Round2(1.0000001))
}

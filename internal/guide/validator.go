package guide

import (
	"sort"
	"strings"

	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/civil"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/validation"
)

type profileRules struct {
	DisplayName        string             `validate:"required,max=120"`
	Languages          []string           `validate:"min=1,unique,dive,required,max=35"`
	WorkingDays        []int              `validate:"min=1,max=7,unique,dive,min=0,max=6"`
	AdvanceBookingDays int                `validate:"gte=0,lte=365"`
	HourlyRate         float64            `validate:"gt=0"`
	HalfDayRate        float64            `validate:"gt=0"`
	FullDayRate        float64            `validate:"gt=0"`
	Currency           string             `validate:"required,len=3"`
	MaxGroupSize       int                `validate:"min=1"`
	MinBookingHours    int                `validate:"min=1,max=24"`
	DepositPercentage  int                `validate:"gte=0,lte=100"`
	CancellationPolicy string             `validate:"max=4000"`
	GroupSurcharges    map[string]float64 `validate:"dive,keys,required,endkeys,gte=0"`
}

type profileValidator struct {
	v *validation.Validator
}

func newProfileValidator() *profileValidator {
	return &profileValidator{v: validation.New()}
}

func (pv *profileValidator) Validate(p *Profile) error {
	days := make([]int, len(p.WorkingDays))
	for i, d := range p.WorkingDays {
		days[i] = int(d)
	}

	err := pv.v.Struct(profileRules{
		DisplayName:        p.DisplayName,
		Languages:          p.Languages,
		WorkingDays:        days,
		AdvanceBookingDays: p.AdvanceBookingDays,
		HourlyRate:         p.HourlyRate,
		HalfDayRate:        p.HalfDayRate,
		FullDayRate:        p.FullDayRate,
		Currency:           p.Currency,
		MaxGroupSize:       p.MaxGroupSize,
		MinBookingHours:    p.MinBookingHours,
		DepositPercentage:  p.DepositPercentage,
		CancellationPolicy: p.CancellationPolicy,
		GroupSurcharges:    p.GroupSurcharges,
	})
	if err != nil {
		return apperror.Detail(ErrInvalidProfile, "invalid guide profile: %s", err.Error())
	}

	if err := validateBlocks(p.WorkingBlocks); err != nil {
		return err
	}
	return nil
}

func validateBlocks(blocks []civil.TimeRange) error {
	sorted := append([]civil.TimeRange(nil), blocks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	for i, b := range sorted {
		if err := b.Validate(); err != nil {
			return apperror.Detail(ErrInvalidProfile, "invalid working block %s: %s", b, err.Error())
		}
		if i > 0 && sorted[i-1].Overlaps(b) {
			return apperror.Detail(ErrInvalidProfile, "working blocks %s and %s overlap", sorted[i-1], b)
		}
	}
	return nil
}

// normalize trims text fields and sorts collections so stored profiles compare cleanly.
func normalize(p *Profile) {
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	p.Bio = strings.TrimSpace(p.Bio)
	p.CancellationPolicy = strings.TrimSpace(p.CancellationPolicy)
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))

	for i, l := range p.Languages {
		p.Languages[i] = strings.ToLower(strings.TrimSpace(l))
	}
	sort.Slice(p.WorkingDays, func(i, j int) bool { return p.WorkingDays[i] < p.WorkingDays[j] })
	sort.Slice(p.WorkingBlocks, func(i, j int) bool { return p.WorkingBlocks[i].Start < p.WorkingBlocks[j].Start })

	if !p.RequiresDeposit {
		p.DepositPercentage = 0
	}
	if p.GroupSurcharges == nil {
		p.GroupSurcharges = map[string]float64{}
	}
}

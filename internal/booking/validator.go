package booking

import (
	"math"
	"strings"

	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/validation"
	"github.com/nekogravitycat/guide-booking-backend/internal/pricing"
)

// durationTolerance is how far a declared duration may drift from the window length, in hours.
const durationTolerance = 0.01

type detailRules struct {
	Type                string   `validate:"required,oneof=tour transfer custom"`
	DurationHours       float64  `validate:"gte=0,lte=24"`
	Location            string   `validate:"required,max=200"`
	GroupSize           int      `validate:"min=1"`
	GroupType           string   `validate:"max=50"`
	Languages           []string `validate:"min=1,dive,required,max=35"`
	SpecialRequirements string   `validate:"max=2000"`
}

type detailsValidator struct {
	v *validation.Validator
}

func newDetailsValidator() *detailsValidator {
	return &detailsValidator{v: validation.New()}
}

// Validate checks the shape of d. Rules that depend on the guide are checked by the service.
func (dv *detailsValidator) Validate(d *ServiceDetails) error {
	var special string
	if d.SpecialRequirements != nil {
		special = *d.SpecialRequirements
	}

	err := dv.v.Struct(detailRules{
		Type:                string(d.Type),
		DurationHours:       d.DurationHours,
		Location:            d.Location,
		GroupSize:           d.GroupSize,
		GroupType:           d.GroupType,
		Languages:           d.Languages,
		SpecialRequirements: special,
	})
	if err != nil {
		return apperror.Detail(ErrValidation, "invalid service details: %s", err.Error())
	}

	if d.Date.IsZero() {
		return apperror.Detail(ErrValidation, "service date is required")
	}
	if err := d.Window.Validate(); err != nil {
		return apperror.Detail(ErrValidation, "invalid service window %s: %s", d.Window, err.Error())
	}

	// Conflicts are checked on the window and prices on the duration, so both must describe the same booking.
	hours := pricing.Round2(d.Window.Hours())
	if math.Abs(d.DurationHours-hours) > durationTolerance {
		return apperror.Detail(ErrValidation,
			"duration of %.2f hours does not match the %s window (%.2f hours)", d.DurationHours, d.Window, hours)
	}
	d.DurationHours = hours
	return nil
}

// normalizeDetails trims free text and fills the duration from the window when it is missing.
func normalizeDetails(d *ServiceDetails) {
	d.Type = ServiceType(strings.ToLower(strings.TrimSpace(string(d.Type))))
	d.Location = strings.TrimSpace(d.Location)
	d.GroupType = strings.ToLower(strings.TrimSpace(d.GroupType))

	langs := make([]string, 0, len(d.Languages))
	for _, l := range d.Languages {
		langs = append(langs, strings.ToLower(strings.TrimSpace(l)))
	}
	d.Languages = langs

	if d.SpecialRequirements != nil {
		s := strings.TrimSpace(*d.SpecialRequirements)
		if s == "" {
			d.SpecialRequirements = nil
		} else {
			d.SpecialRequirements = &s
		}
	}

	if d.DurationHours == 0 && d.Window.Validate() == nil {
		d.DurationHours = d.Window.Hours()
	}
}

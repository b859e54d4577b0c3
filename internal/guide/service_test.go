package guide

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nekogravitycat/guide-booking-backend/internal/auth"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu       sync.Mutex
	profiles map[string]*Profile
}

func newMemRepo() *memRepo {
	return &memRepo{profiles: map[string]*Profile{}}
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, filter Filter) ([]*Profile, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Profile
	for _, p := range m.profiles {
		if filter.Language == "" || p.Speaks(filter.Language) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (m *memRepo) Upsert(_ context.Context, p *Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if existing, ok := m.profiles[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
		p.PhotoID = existing.PhotoID
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	cp := *p
	m.profiles[p.ID] = &cp
	return nil
}

func (m *memRepo) SetPhoto(_ context.Context, id string, photoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return ErrNotFound
	}
	p.PhotoID = &photoID
	return nil
}

func validInput() ProfileInput {
	return ProfileInput{
		DisplayName:        "  Aiko Tanaka ",
		Languages:          []string{"EN", "ja"},
		WorkingDays:        []time.Weekday{time.Saturday, time.Monday, time.Tuesday},
		AdvanceBookingDays: 2,
		HourlyRate:         25,
		HalfDayRate:        90,
		FullDayRate:        150,
		MaxGroupSize:       12,
		MinBookingHours:    2,
		RequiresDeposit:    true,
		DepositPercentage:  30,
		CancellationPolicy: "Free cancellation up to 48 hours before the tour.",
		GroupSurcharges:    map[string]float64{"school": 20},
	}
}

var guideActor = auth.Actor{ID: "guide-1", Role: auth.RoleGuide}

func TestSaveNormalizesAndStores(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, "USD")

	p, err := svc.Save(context.Background(), guideActor, validInput())
	require.NoError(t, err)

	assert.Equal(t, "guide-1", p.ID)
	assert.Equal(t, "Aiko Tanaka", p.DisplayName)
	assert.Equal(t, []string{"en", "ja"}, p.Languages)
	assert.Equal(t, []time.Weekday{time.Monday, time.Tuesday, time.Saturday}, p.WorkingDays)
	assert.Equal(t, "USD", p.Currency)

	stored, err := svc.GetByID(context.Background(), "guide-1")
	require.NoError(t, err)
	assert.Equal(t, 30, stored.DepositPercentage)
}

func TestSaveDropsDepositPercentageWhenNotRequired(t *testing.T) {
	svc := NewService(newMemRepo(), "USD")
	in := validInput()
	in.RequiresDeposit = false

	p, err := svc.Save(context.Background(), guideActor, in)
	require.NoError(t, err)
	assert.Equal(t, 0, p.DepositPercentage)
}

func TestSaveRejectsInvalidProfiles(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ProfileInput)
	}{
		{"no working days", func(in *ProfileInput) { in.WorkingDays = nil }},
		{"zero hourly rate", func(in *ProfileInput) { in.HourlyRate = 0 }},
		{"zero group size", func(in *ProfileInput) { in.MaxGroupSize = 0 }},
		{"zero min hours", func(in *ProfileInput) { in.MinBookingHours = 0 }},
		{"negative lead time", func(in *ProfileInput) { in.AdvanceBookingDays = -1 }},
		{"deposit over 100", func(in *ProfileInput) { in.DepositPercentage = 120 }},
		{"negative surcharge", func(in *ProfileInput) { in.GroupSurcharges = map[string]float64{"vip": -5} }},
		{"no languages", func(in *ProfileInput) { in.Languages = nil }},
		{"overlapping blocks", func(in *ProfileInput) {
			in.WorkingBlocks = []civil.TimeRange{{Start: 9 * 60, End: 13 * 60}, {Start: 12 * 60, End: 16 * 60}}
		}},
		{"inverted block", func(in *ProfileInput) {
			in.WorkingBlocks = []civil.TimeRange{{Start: 13 * 60, End: 9 * 60}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(newMemRepo(), "USD")
			in := validInput()
			tt.mutate(&in)

			_, err := svc.Save(context.Background(), guideActor, in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidProfile), "got %v", err)
		})
	}
}

func TestSaveRequiresGuideRole(t *testing.T) {
	svc := NewService(newMemRepo(), "USD")

	_, err := svc.Save(context.Background(), auth.Actor{ID: "agency-1", Role: auth.RoleAgency}, validInput())
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestSetPhoto(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, "USD")

	assert.ErrorIs(t, svc.SetPhoto(context.Background(), guideActor, "photo-1"), ErrNotFound)

	_, err := svc.Save(context.Background(), guideActor, validInput())
	require.NoError(t, err)
	require.NoError(t, svc.SetPhoto(context.Background(), guideActor, "photo-1"))

	p, err := svc.GetByID(context.Background(), guideActor.ID)
	require.NoError(t, err)
	require.NotNil(t, p.PhotoID)
	assert.Equal(t, "photo-1", *p.PhotoID)
}

func TestWorksOn(t *testing.T) {
	p := &Profile{WorkingDays: []time.Weekday{time.Monday, time.Saturday}}
	assert.True(t, p.WorksOn(time.Monday))
	assert.False(t, p.WorksOn(time.Sunday))
}

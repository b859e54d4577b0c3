package account

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nekogravitycat/guide-booking-backend/internal/auth"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/clock"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu       sync.Mutex
	accounts map[string]*Account
	loginErr error
}

func newMemRepo() *memRepo {
	return &memRepo{accounts: map[string]*Account{}}
}

func (m *memRepo) GetByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memRepo) Create(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.NewString()
	a.CreatedAt = time.Now()
	cp := *a
	m.accounts[a.ID] = &cp
	return nil
}

func (m *memRepo) UpdateLastLogin(_ context.Context, id string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loginErr != nil {
		return m.loginErr
	}
	m.accounts[id].LastLoginAt = &t
	return nil
}

func (m *memRepo) LookupEmails(_ context.Context, ids ...string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]string{}
	for _, id := range ids {
		if a, ok := m.accounts[id]; ok {
			out[id] = a.Email
		}
	}
	return out, nil
}

var now = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func newTestService(repo Repository) (Service, *test.Hook) {
	log, hook := test.NewNullLogger()
	return NewService(repo, auth.NewBcryptPasswordHasher(4), clock.Fixed(now), log), hook
}

func TestRegisterAndLogin(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()

	a, err := svc.Register(ctx, RegisterInput{
		Email:       "  Ana@Guides.TEST ",
		Password:    "s3cret-pass",
		DisplayName: " Ana ",
		Role:        auth.RoleGuide,
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@guides.test", a.Email)
	assert.Equal(t, "Ana", a.DisplayName)
	assert.NotEqual(t, "s3cret-pass", a.PasswordHash)
	assert.Equal(t, auth.Actor{ID: a.ID, Role: auth.RoleGuide}, a.Actor())

	logged, err := svc.Login(ctx, "ANA@guides.test", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, a.ID, logged.ID)
	require.NotNil(t, logged.LastLoginAt)
	assert.Equal(t, now, *logged.LastLoginAt)

	_, err = svc.Login(ctx, "ana@guides.test", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@guides.test", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	emails, err := svc.LookupEmails(ctx, a.ID, "missing")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{a.ID: "ana@guides.test"}, emails)
}

func TestRegisterRejections(t *testing.T) {
	valid := func() RegisterInput {
		return RegisterInput{Email: "ops@agency.test", Password: "long-enough", DisplayName: "Ops", Role: auth.RoleAgency}
	}

	tests := []struct {
		name   string
		mutate func(*RegisterInput)
	}{
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }},
		{"short password", func(in *RegisterInput) { in.Password = "short" }},
		{"blank display name", func(in *RegisterInput) { in.DisplayName = "   " }},
		{"unknown role", func(in *RegisterInput) { in.Role = "admin" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(newMemRepo())
			in := valid()
			tt.mutate(&in)
			_, err := svc.Register(context.Background(), in)
			assert.ErrorIs(t, err, ErrInvalidAccount)
		})
	}

	svc, _ := newTestService(newMemRepo())
	_, err := svc.Register(context.Background(), valid())
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), valid())
	assert.ErrorIs(t, err, ErrEmailAlreadyUsed)
}

func TestLoginSurvivesLastLoginFailure(t *testing.T) {
	repo := newMemRepo()
	svc, hook := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "ops@agency.test", Password: "long-enough", DisplayName: "Ops", Role: auth.RoleAgency})
	require.NoError(t, err)

	repo.loginErr = errors.New("db down")
	a, err := svc.Login(ctx, "ops@agency.test", "long-enough")
	require.NoError(t, err)
	assert.Nil(t, a.LastLoginAt)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

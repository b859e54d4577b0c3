package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nekogravitycat/guide-booking-backend/internal/auth"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/clock"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/validation"
	"github.com/sirupsen/logrus"
)

type RegisterInput struct {
	Email       string    `validate:"required,email,max=254"`
	Password    string    `validate:"min=8,max=72"`
	DisplayName string    `validate:"required,max=100"`
	Role        auth.Role `validate:"oneof=agency guide"`
}

// Service defines business logic related to accounts.
type Service interface {
	Register(ctx context.Context, in RegisterInput) (*Account, error)
	Login(ctx context.Context, email, password string) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	LookupEmails(ctx context.Context, ids ...string) (map[string]string, error)
}

type service struct {
	repo      Repository
	hasher    auth.PasswordHasher
	validator *validation.Validator
	clock     clock.Clock
	log       logrus.FieldLogger
}

func NewService(repo Repository, hasher auth.PasswordHasher, clk clock.Clock, log logrus.FieldLogger) Service {
	return &service{
		repo:      repo,
		hasher:    hasher,
		validator: validation.New(),
		clock:     clk,
		log:       log.WithField("component", "account"),
	}
}

func (s *service) Register(ctx context.Context, in RegisterInput) (*Account, error) {
	in.Email = normalizeEmail(in.Email)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if err := s.validator.Struct(in); err != nil {
		return nil, apperror.Detail(ErrInvalidAccount, "invalid account: %s", err.Error())
	}

	// Check if email is already used.
	_, err := s.repo.GetByEmail(ctx, in.Email)
	if err == nil {
		return nil, ErrEmailAlreadyUsed
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	a := &Account{
		Email:        in.Email,
		PasswordHash: hash,
		DisplayName:  in.DisplayName,
		Role:         in.Role,
	}
	// The unique index still guards against a concurrent registration.
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"account_id": a.ID, "role": a.Role}).Info("account registered")
	return a, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*Account, error) {
	cleanEmail := normalizeEmail(email)
	if cleanEmail == "" || strings.TrimSpace(password) == "" {
		return nil, ErrInvalidCredentials
	}

	a, err := s.repo.GetByEmail(ctx, cleanEmail)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to fetch account by email: %w", err)
	}

	if err := s.hasher.Compare(a.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	// Best effort; a failed stamp does not fail the login.
	now := s.clock.Now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, a.ID, now); err != nil {
		s.log.WithError(err).WithField("account_id", a.ID).Warn("update last login failed")
	} else {
		a.LastLoginAt = &now
	}

	return a, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Account, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) LookupEmails(ctx context.Context, ids ...string) (map[string]string, error) {
	return s.repo.LookupEmails(ctx, ids...)
}

// normalizeEmail trims spaces and lowercases the email.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package account

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/guide-booking-backend/internal/auth"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound           = apperror.New(http.StatusNotFound, "account not found")
	ErrEmailAlreadyUsed   = apperror.New(http.StatusConflict, "email already used")
	ErrInvalidCredentials = apperror.New(http.StatusUnauthorized, "invalid email or password")
	ErrInvalidAccount     = apperror.New(http.StatusBadRequest, "invalid account")
)

// Account is a login identity acting either as an agency or as a guide.
type Account struct {
	ID           string // UUID
	Email        string
	PasswordHash string
	DisplayName  string
	Role         auth.Role
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// Actor returns the identity used to authorize commands.
func (a *Account) Actor() auth.Actor {
	return auth.Actor{ID: a.ID, Role: a.Role}
}

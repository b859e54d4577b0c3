package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/guide-booking-backend/internal/account"
	"github.com/nekogravitycat/guide-booking-backend/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	account.Service
	accounts map[string]*account.Account
	password string
}

func (s *stubService) Register(_ context.Context, in account.RegisterInput) (*account.Account, error) {
	for _, a := range s.accounts {
		if a.Email == in.Email {
			return nil, account.ErrEmailAlreadyUsed
		}
	}
	a := &account.Account{ID: "acc-1", Email: in.Email, DisplayName: in.DisplayName, Role: in.Role}
	s.accounts[a.ID] = a
	s.password = in.Password
	return a, nil
}

func (s *stubService) Login(_ context.Context, email, password string) (*account.Account, error) {
	for _, a := range s.accounts {
		if a.Email == email && password == s.password {
			return a, nil
		}
	}
	return nil, account.ErrInvalidCredentials
}

func (s *stubService) GetByID(_ context.Context, id string) (*account.Account, error) {
	if a, ok := s.accounts[id]; ok {
		return a, nil
	}
	return nil, account.ErrNotFound
}

func do(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthFlow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtManager := auth.NewJWTManager("secret", time.Minute)
	svc := &stubService{accounts: map[string]*account.Account{}}

	r := gin.New()
	RegisterRoutes(r.Group("/v1"), NewHandler(svc, jwtManager), auth.AuthRequired(jwtManager))

	register := map[string]string{
		"email":        "ana@guides.test",
		"password":     "s3cret-pass",
		"display_name": "Ana",
		"role":         "guide",
	}
	w := do(r, http.MethodPost, "/v1/auth/register", "", register)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(r, http.MethodPost, "/v1/auth/register", "", register)
	assert.Equal(t, http.StatusConflict, w.Code)

	register["role"] = "admin"
	w = do(r, http.MethodPost, "/v1/auth/register", "", register)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "ana@guides.test", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "ana@guides.test", "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.Equal(t, "guide", login.Account.Role)

	claims, err := jwtManager.ParseAndValidate(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleGuide, claims.Role)

	w = do(r, http.MethodGet, "/v1/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var me AccountResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "acc-1", me.ID)

	w = do(r, http.MethodGet, "/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

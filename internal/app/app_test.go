package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accountHttp "github.com/nekogravitycat/guide-booking-backend/internal/account/http"
	bookingHttp "github.com/nekogravitycat/guide-booking-backend/internal/booking/http"
	"github.com/nekogravitycat/guide-booking-backend/internal/config"
	"github.com/nekogravitycat/guide-booking-backend/internal/db/dbtest"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/civil"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/logger"
	reviewHttp "github.com/nekogravitycat/guide-booking-backend/internal/review/http"
)

type testApp struct {
	t      *testing.T
	router *gin.Engine
}

func (a *testApp) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// signUp registers an account over HTTP and returns its id and access token.
func (a *testApp) signUp(email, role string) (string, string) {
	a.t.Helper()
	w := a.do(http.MethodPost, "/v1/auth/register", accountHttp.RegisterRequest{
		Email: email, Password: "s3cret-pass", DisplayName: email, Role: role,
	}, "")
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(http.MethodPost, "/v1/auth/login", accountHttp.LoginRequest{Email: email, Password: "s3cret-pass"}, "")
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var login accountHttp.LoginResponse
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &login))
	return login.Account.ID, login.AccessToken
}

func newTestApp(t *testing.T) (*testApp, func(query string, args ...any)) {
	pool := dbtest.Pool(t)
	gin.SetMode(gin.TestMode)

	blocks, err := civil.ParseTimeRanges("09:00-13:00,13:00-17:00")
	require.NoError(t, err)

	c, err := NewContainer(&config.Config{
		JWTSecret:         "test-secret",
		JWTAccessTokenTTL: 30 * time.Minute,
		BcryptCost:        4,
		WorkingBlocks:     blocks,
		DefaultCurrency:   "USD",
		StoragePath:       t.TempDir(),
		KafkaTopic:        "booking-events",
	}, pool, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	exec := func(query string, args ...any) {
		_, err := pool.Exec(context.Background(), query, args...)
		require.NoError(t, err)
	}
	return &testApp{t: t, router: c.Router}, exec
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	app, exec := newTestApp(t)

	guideID, guideToken := app.signUp("ana@guides.test", "guide")
	agencyID, agencyToken := app.signUp("ops@agency.test", "agency")
	_, otherAgencyToken := app.signUp("rival@agency.test", "agency")

	w := app.do(http.MethodPut, "/v1/guides/me", map[string]any{
		"display_name":         "Ana",
		"languages":            []string{"en", "es"},
		"working_days":         []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"},
		"advance_booking_days": 0,
		"hourly_rate":          25,
		"half_day_rate":        90,
		"full_day_rate":        150,
		"max_group_size":       12,
		"min_booking_hours":    2,
		"requires_deposit":     true,
		"deposit_percentage":   20,
		"cancellation_policy":  "Free cancellation up to 48h before the tour.",
	}, guideToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	serviceDate := civil.DateOf(time.Now().AddDate(0, 0, 14))
	submit := map[string]any{
		"guide_id":     guideID,
		"service_type": "tour",
		"date":         serviceDate.String(),
		"start_time":   "09:00",
		"end_time":     "13:00",
		"location":     "Old Town",
		"group_size":   6,
		"languages":    []string{"en"},
		"note":         "School trip",
	}

	var req bookingHttp.BookingResponse
	t.Run("Submit", func(t *testing.T) {
		w := app.do(http.MethodPost, "/v1/booking-requests", submit, guideToken)
		assert.Equal(t, http.StatusForbidden, w.Code, "guides cannot submit")

		w = app.do(http.MethodPost, "/v1/booking-requests", submit, agencyToken)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &req))
		assert.Equal(t, "pending", req.Status)
		assert.Equal(t, agencyID, req.AgencyID)
		assert.Equal(t, 90.0, req.Pricing.FinalRate)
		assert.Equal(t, 18.0, req.Pricing.DepositAmount)

		// Same window, different agency: the slot is already held.
		w = app.do(http.MethodPost, "/v1/booking-requests", submit, otherAgencyToken)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Accept", func(t *testing.T) {
		path := fmt.Sprintf("/v1/booking-requests/%s/respond", req.ID)
		w := app.do(http.MethodPost, path, map[string]string{"decision": "accept"}, guideToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var out bookingHttp.OutcomeResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		assert.Equal(t, "accepted", out.Status)
		assert.True(t, out.Changed)

		w = app.do(http.MethodPost, path, map[string]string{"decision": "accept"}, guideToken)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		assert.False(t, out.Changed)

		w = app.do(http.MethodPost, path, map[string]string{"decision": "reject"}, guideToken)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Availability", func(t *testing.T) {
		ym := civil.YearMonth{Year: serviceDate.Year, Month: serviceDate.Month}
		w := app.do(http.MethodGet, fmt.Sprintf("/v1/guides/%s/availability?month=%s", guideID, ym), nil, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var cal bookingHttp.AvailabilityResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cal))

		var found bool
		for _, d := range cal.Days {
			if d.Date != serviceDate {
				continue
			}
			found = true
			require.Len(t, d.Slots, 2)
			assert.True(t, d.Slots[0].Booked)
			assert.False(t, d.Slots[1].Booked)
		}
		assert.True(t, found)
	})

	t.Run("Messages", func(t *testing.T) {
		path := fmt.Sprintf("/v1/booking-requests/%s/messages", req.ID)
		w := app.do(http.MethodPost, path, map[string]string{"message": "Meeting point is the fountain."}, guideToken)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = app.do(http.MethodPost, path, map[string]string{"message": "Let me in"}, otherAgencyToken)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = app.do(http.MethodGet, "/v1/booking-requests/"+req.ID, nil, agencyToken)
		require.Equal(t, http.StatusOK, w.Code)
		var got bookingHttp.BookingResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		require.Len(t, got.Messages, 3)
		assert.Equal(t, "agency", got.Messages[0].From)
		assert.Equal(t, "system", got.Messages[1].From)
		assert.Equal(t, "guide", got.Messages[2].From)
	})

	t.Run("Review", func(t *testing.T) {
		reviewPath := fmt.Sprintf("/v1/booking-requests/%s/review", req.ID)
		ratings := map[string]int{"knowledge": 5, "communication": 4, "punctuality": 5, "professionalism": 4, "value": 4}

		w := app.do(http.MethodPost, reviewPath, map[string]any{"ratings": ratings}, agencyToken)
		assert.Equal(t, http.StatusConflict, w.Code, "accepted requests cannot be reviewed yet")

		// The service date is in the future, so completion is recorded directly.
		exec(`UPDATE public.booking_requests SET status = 'completed', completed_at = now() WHERE id = $1`, req.ID)

		w = app.do(http.MethodPost, reviewPath, map[string]any{"ratings": ratings, "comment": "Great storyteller"}, agencyToken)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var rv reviewHttp.ReviewResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rv))
		assert.Equal(t, 4.4, rv.Overall)

		w = app.do(http.MethodPost, reviewPath, map[string]any{"ratings": ratings}, agencyToken)
		assert.Equal(t, http.StatusConflict, w.Code)

		w = app.do(http.MethodGet, "/v1/booking-requests/"+req.ID, nil, guideToken)
		var got bookingHttp.BookingResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.True(t, got.HasReview)

		w = app.do(http.MethodGet, fmt.Sprintf("/v1/guides/%s/reviews/summary", guideID), nil, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var summary reviewHttp.SummaryResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
		assert.Equal(t, 1, summary.Count)
		assert.Equal(t, 4.4, summary.Overall)
		assert.Equal(t, 5.0, summary.Categories["knowledge"])
	})
}

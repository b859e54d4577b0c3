package review

import (
	"math"
	"net/http"
	"time"

	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "review not found")
	ErrInvalidReview    = apperror.New(http.StatusBadRequest, "invalid review")
	ErrPermissionDenied = apperror.New(http.StatusForbidden, "only the agency of a request can review it")
)

// Category is one rated aspect of a guide's service.
type Category string

const (
	CategoryKnowledge       Category = "knowledge"
	CategoryCommunication   Category = "communication"
	CategoryPunctuality     Category = "punctuality"
	CategoryProfessionalism Category = "professionalism"
	CategoryValue           Category = "value"
)

// Categories lists every category a review must rate.
var Categories = []Category{
	CategoryKnowledge,
	CategoryCommunication,
	CategoryPunctuality,
	CategoryProfessionalism,
	CategoryValue,
}

// Review is an agency's verdict on a completed booking request.
type Review struct {
	ID         string
	RequestID  string
	AgencyID   string
	GuideID    string
	Ratings    map[Category]int
	Overall    float64
	Comment    string
	Highlights []string
	CreatedAt  time.Time
}

// Summary aggregates the reviews of one guide.
type Summary struct {
	GuideID    string
	Count      int
	Overall    float64
	Categories map[Category]float64
}

type Filter struct {
	GuideID  string
	Page     int
	PageSize int
}

// Overall is the mean of all ratings rounded to one decimal.
func Overall(ratings map[Category]int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, v := range ratings {
		sum += v
	}
	return round1(float64(sum) / float64(len(ratings)))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

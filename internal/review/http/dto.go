package http

import (
	"time"

	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/guide-booking-backend/internal/review"
)

type CreateReviewRequest struct {
	Ratings    map[string]int `json:"ratings" binding:"required"`
	Comment    string         `json:"comment"`
	Highlights []string       `json:"highlights"`
}

func (r *CreateReviewRequest) ToInput() review.CreateInput {
	ratings := make(map[review.Category]int, len(r.Ratings))
	for k, v := range r.Ratings {
		ratings[review.Category(k)] = v
	}
	return review.CreateInput{Ratings: ratings, Comment: r.Comment, Highlights: r.Highlights}
}

type ListReviewsRequest struct {
	request.ListParams
}

type ReviewResponse struct {
	ID         string         `json:"id"`
	RequestID  string         `json:"request_id"`
	AgencyID   string         `json:"agency_id"`
	GuideID    string         `json:"guide_id"`
	Ratings    map[string]int `json:"ratings"`
	Overall    float64        `json:"overall"`
	Comment    string         `json:"comment,omitempty"`
	Highlights []string       `json:"highlights"`
	CreatedAt  time.Time      `json:"created_at"`
}

func NewReviewResponse(rv *review.Review) ReviewResponse {
	ratings := make(map[string]int, len(rv.Ratings))
	for k, v := range rv.Ratings {
		ratings[string(k)] = v
	}
	highlights := rv.Highlights
	if highlights == nil {
		highlights = []string{}
	}
	return ReviewResponse{
		ID:         rv.ID,
		RequestID:  rv.RequestID,
		AgencyID:   rv.AgencyID,
		GuideID:    rv.GuideID,
		Ratings:    ratings,
		Overall:    rv.Overall,
		Comment:    rv.Comment,
		Highlights: highlights,
		CreatedAt:  rv.CreatedAt,
	}
}

type SummaryResponse struct {
	GuideID    string             `json:"guide_id"`
	Count      int                `json:"count"`
	Overall    float64            `json:"overall"`
	Categories map[string]float64 `json:"categories"`
}

func NewSummaryResponse(s *review.Summary) SummaryResponse {
	cats := make(map[string]float64, len(s.Categories))
	for k, v := range s.Categories {
		cats[string(k)] = v
	}
	return SummaryResponse{GuideID: s.GuideID, Count: s.Count, Overall: s.Overall, Categories: cats}
}

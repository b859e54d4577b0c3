package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/guide-booking-backend/internal/auth"
	"github.com/nekogravitycat/guide-booking-backend/internal/guide"
	photoHttp "github.com/nekogravitycat/guide-booking-backend/internal/photo/http"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/response"
)

const maxPhotoBytes = 5 << 20

type Handler struct {
	service      guide.Service
	photoHandler *photoHttp.Handler
}

func NewHandler(service guide.Service, photoHandler *photoHttp.Handler) *Handler {
	return &Handler{service: service, photoHandler: photoHandler}
}

func (h *Handler) List(c *gin.Context) {
	var req ListGuidesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	profiles, total, err := h.service.List(c.Request.Context(), guide.Filter{
		Language: req.Language,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]GuideResponse, len(profiles))
	for i, p := range profiles {
		items[i] = NewGuideResponse(p)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewGuideResponse(p))
}

// SaveMine creates or replaces the authenticated guide's profile.
func (h *Handler) SaveMine(c *gin.Context) {
	var body SaveProfileRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	in, err := body.ToInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.service.Save(c.Request.Context(), auth.GetActor(c), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewGuideResponse(p))
}

// UploadPhoto stores a new profile photo and points the guide's profile at it.
func (h *Handler) UploadPhoto(c *gin.Context) {
	actor := auth.GetActor(c)
	h.photoHandler.HandleUpload(c, photoHttp.UploadConfig{
		FormFieldName: "photo",
		MaxSizeBytes:  maxPhotoBytes,
		AllowedTypes:  []string{"image/jpeg", "image/png"},
		AfterUpload: func(ctx context.Context, photoID string) error {
			return h.service.SetPhoto(ctx, actor, photoID)
		},
	})
}

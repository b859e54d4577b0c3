package http

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/guide-booking-backend/internal/auth"
	"github.com/nekogravitycat/guide-booking-backend/internal/photo"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/response"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	service photo.Service
	log     logrus.FieldLogger
}

func NewHandler(service photo.Service, log logrus.FieldLogger) *Handler {
	return &Handler{service: service, log: log.WithField("component", "photo_http")}
}

// UploadConfig configures one upload endpoint.
type UploadConfig struct {
	FormFieldName string                                          // default: "file"
	MaxSizeBytes  int64                                           // 0 = no limit
	AllowedTypes  []string                                        // empty = any image type
	AfterUpload   func(ctx context.Context, photoID string) error // optional; failure rolls the upload back
}

// HandleUpload stores the uploaded image, runs the AfterUpload hook and
// deletes the photo again when the hook fails.
func (h *Handler) HandleUpload(c *gin.Context, cfg UploadConfig) {
	fieldName := cfg.FormFieldName
	if fieldName == "" {
		fieldName = "file"
	}

	header, err := c.FormFile(fieldName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fieldName + " is required", "details": err.Error()})
		return
	}
	if cfg.MaxSizeBytes > 0 && header.Size > cfg.MaxSizeBytes {
		response.Error(c, photo.ErrTooLarge)
		return
	}

	src, err := header.Open()
	if err != nil {
		response.Error(c, fmt.Errorf("failed to open uploaded file: %w", err))
		return
	}
	defer src.Close()

	ctx := c.Request.Context()
	p, err := h.service.Upload(ctx, photo.UploadInput{
		OwnerID:      auth.GetUserID(c),
		Filename:     header.Filename,
		Content:      src,
		MaxSizeBytes: cfg.MaxSizeBytes,
		AllowedTypes: cfg.AllowedTypes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if cfg.AfterUpload != nil {
		if err := cfg.AfterUpload(ctx, p.ID); err != nil {
			if delErr := h.service.Delete(ctx, p.ID); delErr != nil {
				h.log.WithError(delErr).WithField("photo_id", p.ID).Error("roll back photo upload failed")
			}
			response.Error(c, err)
			return
		}
	}

	var thumbURL *string
	if p.ThumbnailPath != nil {
		t := photo.ThumbnailURL(p.ID)
		thumbURL = &t
	}
	c.JSON(http.StatusCreated, UploadResponse{
		PhotoID:      p.ID,
		URL:          photo.URL(p.ID),
		ThumbnailURL: thumbURL,
		ContentType:  p.ContentType,
		Size:         p.Size,
	})
}

func (h *Handler) ServeFile(c *gin.Context) {
	h.serve(c, false)
}

func (h *Handler) ServeThumbnail(c *gin.Context) {
	h.serve(c, true)
}

func (h *Handler) serve(c *gin.Context, thumbnail bool) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	open := h.service.Open
	if thumbnail {
		open = h.service.OpenThumbnail
	}
	stream, p, err := open(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer stream.Close()

	contentType, filename := p.ContentType, p.Filename
	if thumbnail {
		contentType, filename = "image/jpeg", p.ID+"_thumb.jpg"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Header("Cache-Control", "public, max-age=86400")

	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, stream); err != nil {
		// Headers are already sent.
		h.log.WithError(err).WithField("photo_id", p.ID).Warn("stream photo failed")
	}
}

package photo

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "photo not found")
	ErrNoThumbnail      = apperror.New(http.StatusNotFound, "thumbnail not available for this photo")
	ErrTooLarge         = apperror.New(http.StatusRequestEntityTooLarge, "photo is too large")
	ErrUnsupportedType  = apperror.New(http.StatusUnsupportedMediaType, "photo type is not allowed")
	ErrPermissionDenied = apperror.New(http.StatusForbidden, "photo belongs to another account")
)

// Photo is an uploaded image owned by an account.
type Photo struct {
	ID            string
	OwnerID       string
	Filename      string
	StoragePath   string  // internal
	ThumbnailPath *string // internal
	ContentType   string
	Size          int64
	CreatedAt     time.Time
}

// URL returns the public URL of a photo.
func URL(id string) string {
	return "/v1/photos/" + id
}

// ThumbnailURL returns the public URL of a photo's thumbnail.
func ThumbnailURL(id string) string {
	return "/v1/photos/" + id + "/thumbnail"
}

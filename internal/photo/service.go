package photo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/clock"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/storage"
	"github.com/sirupsen/logrus"
)

const (
	thumbnailSize = 200
	maxFilename   = 255
)

// UploadInput describes one uploaded image. Content is read at most once.
type UploadInput struct {
	OwnerID      string
	Filename     string
	Content      io.Reader
	MaxSizeBytes int64    // 0 = no limit
	AllowedTypes []string // empty = any image type
}

type Service interface {
	Upload(ctx context.Context, in UploadInput) (*Photo, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Photo, error)
	Open(ctx context.Context, id string) (io.ReadCloser, *Photo, error)
	OpenThumbnail(ctx context.Context, id string) (io.ReadCloser, *Photo, error)
}

type service struct {
	repo    Repository
	storage storage.Storage
	imgProc *storage.ImageProcessor
	clock   clock.Clock
	log     logrus.FieldLogger
}

func NewService(repo Repository, store storage.Storage, clk clock.Clock, log logrus.FieldLogger) Service {
	return &service{
		repo:    repo,
		storage: store,
		imgProc: storage.NewImageProcessor(),
		clock:   clk,
		log:     log.WithField("component", "photo"),
	}
}

// readLimited reads all of r, failing with ErrTooLarge past limit bytes.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, apperror.Detail(ErrTooLarge, "photo exceeds %d bytes", limit)
	}
	return data, nil
}

func (s *service) Upload(ctx context.Context, in UploadInput) (*Photo, error) {
	data, err := readLimited(in.Content, in.MaxSizeBytes)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read photo content: %w", err)
	}

	// The declared content type is ignored; the bytes decide.
	mtype := mimetype.Detect(data)
	contentType := mtype.String()
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	if !strings.HasPrefix(contentType, "image/") ||
		(len(in.AllowedTypes) > 0 && !slices.Contains(in.AllowedTypes, contentType)) {
		return nil, apperror.Detail(ErrUnsupportedType, "photo type %s is not allowed", contentType)
	}
	if _, _, err := s.imgProc.Dimensions(bytes.NewReader(data)); err != nil {
		return nil, apperror.Detail(ErrUnsupportedType, "photo could not be decoded")
	}

	id := uuid.NewString()
	// Sharding path: photos/ab/UUID.ext
	shard := id[:2]
	storagePath := fmt.Sprintf("photos/%s/%s%s", shard, id, mtype.Extension())

	if err := s.storage.Save(ctx, storagePath, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to save photo to storage: %w", err)
	}

	var thumbnailPath *string
	thumb, err := s.imgProc.GenerateThumbnail(bytes.NewReader(data), thumbnailSize, thumbnailSize)
	if err != nil {
		s.log.WithError(err).WithField("photo_id", id).Warn("generate thumbnail failed")
	} else {
		tPath := fmt.Sprintf("photos/%s/%s_thumb.jpg", shard, id)
		if err := s.storage.Save(ctx, tPath, thumb); err != nil {
			s.log.WithError(err).WithField("photo_id", id).Warn("save thumbnail failed")
		} else {
			thumbnailPath = &tPath
		}
	}

	p := &Photo{
		ID:            id,
		OwnerID:       in.OwnerID,
		Filename:      cleanFilename(in.Filename),
		StoragePath:   storagePath,
		ThumbnailPath: thumbnailPath,
		ContentType:   contentType,
		Size:          int64(len(data)),
		CreatedAt:     s.clock.Now().UTC(),
	}

	if err := s.repo.Create(ctx, p); err != nil {
		s.removeObjects(ctx, p)
		return nil, err
	}
	return p, nil
}

// removeObjects deletes stored bytes best effort.
func (s *service) removeObjects(ctx context.Context, p *Photo) {
	paths := []string{p.StoragePath}
	if p.ThumbnailPath != nil {
		paths = append(paths, *p.ThumbnailPath)
	}
	for _, objectPath := range paths {
		if err := s.storage.Delete(ctx, objectPath); err != nil {
			s.log.WithError(err).WithField("path", objectPath).Warn("delete stored photo failed")
		}
	}
}

func (s *service) Delete(ctx context.Context, id string) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.removeObjects(ctx, p)
	return nil
}

func (s *service) Get(ctx context.Context, id string) (*Photo, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) open(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	stream, err := s.storage.Get(ctx, objectPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve photo from storage: %w", err)
	}
	return stream, nil
}

func (s *service) Open(ctx context.Context, id string) (io.ReadCloser, *Photo, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	stream, err := s.open(ctx, p.StoragePath)
	if err != nil {
		return nil, nil, err
	}
	return stream, p, nil
}

func (s *service) OpenThumbnail(ctx context.Context, id string) (io.ReadCloser, *Photo, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if p.ThumbnailPath == nil {
		return nil, nil, ErrNoThumbnail
	}
	stream, err := s.open(ctx, *p.ThumbnailPath)
	if err != nil {
		return nil, nil, err
	}
	return stream, p, nil
}

// cleanFilename keeps the base name only, for Content-Disposition.
func cleanFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	name = strings.Map(func(r rune) rune {
		if r == '"' || r < 0x20 {
			return -1
		}
		return r
	}, name)
	if name == "." || name == "/" || name == "" {
		return "photo"
	}
	if r := []rune(name); len(r) > maxFilename {
		name = string(r[:maxFilename])
	}
	return name
}

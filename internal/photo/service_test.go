package photo

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/clock"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/logger"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu        sync.Mutex
	photos    map[string]*Photo
	createErr error
}

func newMemRepo() *memRepo {
	return &memRepo{photos: map[string]*Photo{}}
}

func (m *memRepo) Create(_ context.Context, p *Photo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *p
	m.photos[p.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.photos[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.photos[id]; !ok {
		return ErrNotFound
	}
	delete(m.photos, id)
	return nil
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (s *memStorage) Save(_ context.Context, path string, content io.Reader) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = data
	return nil
}

func (s *memStorage) Get(_ context.Context, path string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[path]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStorage) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, path)
	return nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(1, 1, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

var uploadedAt = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func newTestService(repo Repository, store storage.Storage) Service {
	return NewService(repo, store, clock.Fixed(uploadedAt), logger.Discard())
}

func TestUploadStoresPhotoAndThumbnail(t *testing.T) {
	repo, store := newMemRepo(), newMemStorage()
	svc := newTestService(repo, store)
	ctx := context.Background()
	data := pngBytes(t, 640, 480)

	p, err := svc.Upload(ctx, UploadInput{
		OwnerID:  "guide-1",
		Filename: `C:\Users\ana\"me".png`,
		Content:  bytes.NewReader(data),
	})
	require.NoError(t, err)
	assert.Equal(t, "image/png", p.ContentType)
	assert.Equal(t, int64(len(data)), p.Size)
	assert.Equal(t, "me.png", p.Filename)
	assert.Equal(t, uploadedAt, p.CreatedAt)
	assert.True(t, strings.HasPrefix(p.StoragePath, "photos/"+p.ID[:2]+"/"))
	assert.True(t, strings.HasSuffix(p.StoragePath, ".png"))
	require.NotNil(t, p.ThumbnailPath)
	assert.Len(t, store.objects, 2)

	rc, got, err := svc.Open(ctx, p.ID)
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	assert.Equal(t, data, body)
	assert.Equal(t, p.ID, got.ID)

	rc, _, err = svc.OpenThumbnail(ctx, p.ID)
	require.NoError(t, err)
	thumb, _ := io.ReadAll(rc)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 200, cfg.Width)
	assert.Equal(t, 150, cfg.Height)

	require.NoError(t, svc.Delete(ctx, p.ID))
	assert.Empty(t, store.objects)
	_, _, err = svc.Open(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUploadRejections(t *testing.T) {
	svc := newTestService(newMemRepo(), newMemStorage())
	ctx := context.Background()

	_, err := svc.Upload(ctx, UploadInput{Content: bytes.NewReader(pngBytes(t, 64, 64)), MaxSizeBytes: 10})
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = svc.Upload(ctx, UploadInput{Content: strings.NewReader("plain text, not a picture")})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = svc.Upload(ctx, UploadInput{Content: bytes.NewReader(pngBytes(t, 8, 8)), AllowedTypes: []string{"image/jpeg"}})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestUploadCleansStorageWhenRecordFails(t *testing.T) {
	repo, store := newMemRepo(), newMemStorage()
	repo.createErr = errors.New("db down")
	svc := newTestService(repo, store)

	_, err := svc.Upload(context.Background(), UploadInput{Content: bytes.NewReader(pngBytes(t, 32, 32))})
	require.Error(t, err)
	assert.Empty(t, store.objects)
}

func TestOpenThumbnailMissing(t *testing.T) {
	repo := newMemRepo()
	repo.photos["p1"] = &Photo{ID: "p1", StoragePath: "photos/p1/p1.png"}
	svc := newTestService(repo, newMemStorage())

	_, _, err := svc.OpenThumbnail(context.Background(), "p1")
	assert.ErrorIs(t, err, ErrNoThumbnail)

	_, _, err = svc.Open(context.Background(), "p1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestURLs(t *testing.T) {
	assert.Equal(t, "/v1/photos/abc", URL("abc"))
	assert.Equal(t, "/v1/photos/abc/thumbnail", ThumbnailURL("abc"))
}

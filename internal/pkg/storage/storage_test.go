package storage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "photos/ab/one.jpg", strings.NewReader("hello")))

	rc, err := s.Get(ctx, "photos/ab/one.jpg")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(body))

	require.NoError(t, s.Delete(ctx, "photos/ab/one.jpg"))
	require.NoError(t, s.Delete(ctx, "photos/ab/one.jpg"))

	_, err = s.Get(ctx, "photos/ab/one.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorageRejectsEscapingPaths(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, s.Save(context.Background(), "../outside.txt", strings.NewReader("x")))
	_, err = s.Get(context.Background(), "a/../../etc/passwd")
	assert.Error(t, err)
}

func TestGenerateThumbnail(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 800, 400))
	for x := 0; x < 800; x++ {
		img.Set(x, 10, color.RGBA{R: 200, A: 255})
	}
	var src bytes.Buffer
	require.NoError(t, png.Encode(&src, img))

	p := NewImageProcessor()
	w, h, err := p.Dimensions(bytes.NewReader(src.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 800, w)
	assert.Equal(t, 400, h)

	thumb, err := p.GenerateThumbnail(bytes.NewReader(src.Bytes()), 200, 200)
	require.NoError(t, err)

	w, h, err = p.Dimensions(thumb)
	require.NoError(t, err)
	assert.Equal(t, 200, w)
	assert.Equal(t, 100, h)

	_, err = p.GenerateThumbnail(strings.NewReader("not an image"), 200, 200)
	assert.Error(t, err)
}

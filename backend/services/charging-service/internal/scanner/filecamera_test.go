package scanner

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.SetGray(x, 0, color.Gray{Y: 255})
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestDirCameraReplaysFrames(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 32, 16)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o600))

	cam := NewDirCamera(dir, time.Millisecond)
	capture, err := cam.Acquire(context.Background(), FacingEnvironment)
	require.NoError(t, err)
	assert.True(t, cam.Held())

	_, err = cam.Acquire(context.Background(), FacingEnvironment)
	assert.ErrorIs(t, err, ErrDeviceBusy)

	frame, err := capture.NextFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 32, frame.Width)
	assert.Equal(t, 16, frame.Height)
	require.NotNil(t, frame.Image)

	require.NoError(t, cam.Release(capture))
	assert.False(t, cam.Held())
	require.NoError(t, cam.Release(capture))
}

func TestDirCameraMissingDirectory(t *testing.T) {
	cam := NewDirCamera(filepath.Join(t.TempDir(), "missing"), time.Millisecond)
	_, err := cam.Acquire(context.Background(), FacingEnvironment)
	assert.ErrorIs(t, err, ErrNoDevice)
}

func TestDirCameraHonoursContext(t *testing.T) {
	cam := NewDirCamera(t.TempDir(), time.Hour)
	capture, err := cam.Acquire(context.Background(), FacingUser)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = capture.NextFrame(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestZXingDecoderReportsNoCode(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	_, err := NewZXingDecoder(true).Decode(Frame{Width: 64, Height: 64, Image: img})
	assert.ErrorIs(t, err, ErrNoCode)

	_, err = NewZXingDecoder(false).Decode(Frame{})
	assert.ErrorIs(t, err, ErrNoCode)
}

func TestZXingDecoderReadsGeneratedCode(t *testing.T) {
	matrix, err := qrcode.NewQRCodeWriter().Encode("siteId=123,gunId=456", gozxing.BarcodeFormat_QR_CODE, 240, 240, nil)
	require.NoError(t, err)

	payload, err := NewZXingDecoder(true).Decode(Frame{Width: 240, Height: 240, Image: matrix})
	require.NoError(t, err)
	assert.Equal(t, "siteId=123,gunId=456", payload)
}

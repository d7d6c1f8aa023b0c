package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// DirCamera is a Device that replays image files from a directory as camera
// frames. Kiosks without a video pipeline drop snapshots into the directory.
type DirCamera struct {
	dir      string
	interval time.Duration

	mu   sync.Mutex
	held *dirCapture
}

// NewDirCamera returns a camera reading frames from dir every interval.
func NewDirCamera(dir string, interval time.Duration) *DirCamera {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	return &DirCamera{dir: dir, interval: interval}
}

// Acquire implements Device. Only one capture may be held at a time.
func (c *DirCamera) Acquire(ctx context.Context, facing Facing) (Capture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held != nil {
		return nil, ErrDeviceBusy
	}

	info, err := os.Stat(c.dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrNoDevice, c.dir)
	case errors.Is(err, fs.ErrPermission):
		return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, c.dir)
	case err != nil:
		return nil, err
	case !info.IsDir():
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNoDevice, c.dir)
	}

	capture := &dirCapture{camera: c, facing: facing}
	c.held = capture
	return capture, nil
}

// Release implements Device.
func (c *DirCamera) Release(capture Capture) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held == nil || c.held != capture {
		return nil
	}
	c.held = nil
	return nil
}

// Held reports whether a capture is currently acquired.
func (c *DirCamera) Held() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.held != nil
}

type dirCapture struct {
	camera *DirCamera
	facing Facing
	next   int
}

func (d *dirCapture) NextFrame(ctx context.Context) (Frame, error) {
	timer := time.NewTimer(d.camera.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-timer.C:
	}

	files, err := listImages(d.camera.dir)
	if err != nil {
		return Frame{}, err
	}
	if len(files) == 0 {
		// an empty directory is an empty viewfinder
		return Frame{Width: 1, Height: 1}, nil
	}

	path := files[d.next%len(files)]
	d.next++

	img, err := readImage(path)
	if err != nil {
		return Frame{}, err
	}
	bounds := img.Bounds()
	return Frame{Width: bounds.Dx(), Height: bounds.Dy(), Image: img}, nil
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func readImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("scanner: read frame %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

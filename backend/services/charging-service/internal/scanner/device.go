package scanner

import (
	"context"
	"image"
)

// Facing selects which camera to acquire.
type Facing string

const (
	FacingEnvironment Facing = "environment"
	FacingUser        Facing = "user"
)

// Frame is one image delivered by a capture.
type Frame struct {
	Width  int
	Height int
	Image  image.Image
}

// Capture is an acquired camera stream.
type Capture interface {
	// NextFrame blocks until a frame is available or ctx is done.
	NextFrame(ctx context.Context) (Frame, error)
}

// Device hands out captures. Every successful Acquire must be paired with Release.
type Device interface {
	Acquire(ctx context.Context, facing Facing) (Capture, error)
	Release(capture Capture) error
}

// Decoder extracts a QR payload from a frame.
// It returns ErrNoCode when the frame carries no code and ErrMalformedCode when
// a code was located but its data could not be read.
type Decoder interface {
	Decode(frame Frame) (string, error)
}

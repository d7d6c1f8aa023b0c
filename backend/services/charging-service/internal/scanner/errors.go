package scanner

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCode is returned by decoders when a frame holds no QR code.
	ErrNoCode = errors.New("scanner: no code in frame")
	// ErrMalformedCode is returned by decoders for unreadable code data.
	ErrMalformedCode = errors.New("scanner: malformed code")

	// ErrPermissionDenied is returned by devices when camera access is refused.
	ErrPermissionDenied = errors.New("scanner: camera access denied")
	// ErrNoDevice is returned by devices when no camera matches.
	ErrNoDevice = errors.New("scanner: no camera found")
	// ErrDeviceBusy is returned by devices already held by another capture.
	ErrDeviceBusy = errors.New("scanner: camera busy")

	// ErrStreamNotReady means the capture delivered a frame without geometry.
	ErrStreamNotReady = errors.New("scanner: camera stream not ready")
	// ErrScannerBusy is returned by Start while a scan is running.
	ErrScannerBusy = errors.New("scanner: scan already in progress")
)

// Kind classifies terminal scan failures.
type Kind string

const (
	KindPermissionDenied Kind = "PermissionDenied"
	KindNoDevice         Kind = "NoDevice"
	KindDeviceError      Kind = "DeviceError"
)

// ScanError is the terminal error of a failed activation.
type ScanError struct {
	Kind Kind
	Err  error
}

func (e *ScanError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("scanner: %s", e.Kind)
	}
	return fmt.Sprintf("scanner: %s: %v", e.Kind, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

func deviceError(err error) *ScanError {
	return &ScanError{Kind: KindDeviceError, Err: err}
}

func classifyAcquire(err error) *ScanError {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return &ScanError{Kind: KindPermissionDenied, Err: err}
	case errors.Is(err, ErrNoDevice):
		return &ScanError{Kind: KindNoDevice, Err: err}
	default:
		return deviceError(err)
	}
}

// KindOf extracts the failure kind from err.
func KindOf(err error) (Kind, bool) {
	var se *ScanError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}

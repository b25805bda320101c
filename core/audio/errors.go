package audio

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied is returned when the platform refuses access to a
	// microphone or speaker.
	ErrPermissionDenied = errors.New("audio device permission denied")
	// ErrDeviceBusy is returned when a device is already owned by another
	// session.
	ErrDeviceBusy = errors.New("audio device busy")
	// ErrDeviceNotInitialized is returned by backends used before Init or
	// after Close.
	ErrDeviceNotInitialized = errors.New("audio device not initialized")
	// ErrDeviceStopped is reported when a device stops without being asked to.
	ErrDeviceStopped = errors.New("audio device stopped unexpectedly")
)

// DeviceError reports a failure to acquire or keep a platform audio device.
type DeviceError struct {
	Device string
	Op     string
	Err    error
}

func (e *DeviceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s device %s failed", e.Device, e.Op)
	}
	return fmt.Sprintf("%s device %s failed: %v", e.Device, e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

func NewDeviceError(device, op string, err error) *DeviceError {
	return &DeviceError{Device: device, Op: op, Err: err}
}

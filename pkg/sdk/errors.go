package sdk

import (
	"errors"
	"fmt"
)

// Sentinel errors for the sdk package.
var (
	// ErrNoCamerasFound indicates discovery returned an empty list.
	ErrNoCamerasFound = errors.New("sdk: no cameras detected")

	// ErrCameraIndexOutOfRange indicates an open-by-index beyond the discovered list.
	ErrCameraIndexOutOfRange = errors.New("sdk: camera index out of range")

	// ErrCameraNotFound indicates an open-by-serial for an unknown camera.
	ErrCameraNotFound = errors.New("sdk: camera not found")

	// ErrSDKClosed indicates the SDK handle has been disposed.
	ErrSDKClosed = errors.New("sdk: sdk closed")

	// ErrCameraClosed indicates the camera handle has been disposed.
	ErrCameraClosed = errors.New("sdk: camera closed")

	// ErrNotArmed indicates a frame was requested before Arm.
	ErrNotArmed = errors.New("sdk: camera not armed")

	// ErrAlreadyArmed indicates Arm was called twice without Disarm.
	ErrAlreadyArmed = errors.New("sdk: camera already armed")

	// ErrCameraArmed indicates a setting that requires a disarmed camera.
	ErrCameraArmed = errors.New("sdk: setting requires a disarmed camera")

	// ErrBackendUnavailable indicates the requested backend cannot run on this platform.
	ErrBackendUnavailable = errors.New("sdk: backend unavailable on this platform")
)

// VendorError represents an error code returned by the vendor SDK.
type VendorError struct {
	// Op is the SDK call that failed.
	Op string

	// Code is the raw vendor error code.
	Code int

	// Message is the vendor error string, if retrievable.
	Message string
}

// Error implements the error interface.
func (e *VendorError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("sdk: %s failed: %s (code %d)", e.Op, e.Message, e.Code)
	}
	return fmt.Sprintf("sdk: %s failed with code %d", e.Op, e.Code)
}

// NewVendorError creates a VendorError for a failed SDK call.
func NewVendorError(op string, code int, message string) *VendorError {
	return &VendorError{Op: op, Code: code, Message: message}
}

// IsClosed returns true if the error indicates a disposed handle.
func IsClosed(err error) bool {
	return errors.Is(err, ErrSDKClosed) || errors.Is(err, ErrCameraClosed)
}

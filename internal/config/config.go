// Package config provides configuration helpers for thorcam commands.
package config

import (
	"os"
	"strconv"
)

// Default daemon configuration.
const (
	DefaultPort        = "8090"
	DefaultJPEGQuality = 85
	DefaultCameraIndex = 0
)

// LogLevel returns the log level from THORCAM_LOG_LEVEL env var.
// Falls back to "info" if not set.
func LogLevel() string {
	if lvl := os.Getenv("THORCAM_LOG_LEVEL"); lvl != "" {
		return lvl
	}
	return "info"
}

// Port returns the HTTP listen port from THORCAM_PORT env var.
func Port() string {
	if port := os.Getenv("THORCAM_PORT"); port != "" {
		return port
	}
	return DefaultPort
}

// CameraIndex returns the camera index from THORCAM_CAMERA_INDEX env var.
func CameraIndex() int {
	if s := os.Getenv("THORCAM_CAMERA_INDEX"); s != "" {
		if i, err := strconv.Atoi(s); err == nil && i >= 0 {
			return i
		}
	}
	return DefaultCameraIndex
}

// Backend returns the SDK backend from THORCAM_BACKEND env var.
// Empty means auto-detect.
func Backend() string {
	return os.Getenv("THORCAM_BACKEND")
}

// SDKDir returns the vendor DLL directory from THORCAM_SDK_DIR env var.
// Empty means the DLLs are resolved from PATH.
func SDKDir() string {
	return os.Getenv("THORCAM_SDK_DIR")
}

// JPEGQuality returns the JPEG encode quality from THORCAM_JPEG_QUALITY env var.
func JPEGQuality() int {
	if s := os.Getenv("THORCAM_JPEG_QUALITY"); s != "" {
		if q, err := strconv.Atoi(s); err == nil && q >= 1 && q <= 100 {
			return q
		}
	}
	return DefaultJPEGQuality
}

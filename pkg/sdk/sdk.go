// Package sdk abstracts the Thorlabs scientific camera SDK behind Go
// interfaces.
//
// This package supports multiple backends:
//   - Thorlabs (Windows) - production use against the vendor DLLs
//   - Mock - CI/testing and development without hardware
//
// The backend is selected automatically based on platform, or can be
// explicitly specified via configuration.
package sdk

import (
	"io"
	"time"
)

// SensorType identifies the sensor technology of a camera.
type SensorType string

const (
	// SensorMonochrome is a grayscale sensor.
	SensorMonochrome SensorType = "monochrome"
	// SensorBayer is a color sensor with a Bayer filter mosaic.
	SensorBayer SensorType = "bayer"
	// SensorMonochromePolarized is a grayscale sensor with a polarization filter.
	SensorMonochromePolarized SensorType = "monochrome_polarized"
)

// CFAPhase is the color filter array phase of a Bayer sensor: the color
// of the top-left pixel of the mosaic.
type CFAPhase int

const (
	// PhaseBayerRed: top-left pixel is red.
	PhaseBayerRed CFAPhase = iota
	// PhaseBayerBlue: top-left pixel is blue.
	PhaseBayerBlue
	// PhaseGreenLeftOfRed: top-left pixel is green, red to its right.
	PhaseGreenLeftOfRed
	// PhaseGreenLeftOfBlue: top-left pixel is green, blue to its right.
	PhaseGreenLeftOfBlue
)

// CameraInfo identifies a discovered camera.
type CameraInfo struct {
	Serial string `json:"serial"`
	Model  string `json:"model"`
	Name   string `json:"name"`
}

// Sensor describes the fixed sensor properties of an open camera.
type Sensor struct {
	Type     SensorType `json:"type"`
	Width    int        `json:"width"`
	Height   int        `json:"height"`
	BitDepth int        `json:"bit_depth"`

	// Phase is only meaningful for Bayer sensors.
	Phase CFAPhase `json:"phase"`

	// ColorCorrection is the row-major 3x3 color correction matrix.
	// Only meaningful for Bayer sensors.
	ColorCorrection [9]float64 `json:"color_correction"`

	// WhiteBalance is the row-major 3x3 default white balance matrix.
	// Only meaningful for Bayer sensors.
	WhiteBalance [9]float64 `json:"white_balance"`
}

// IsColor reports whether frames from this sensor need demosaicing.
func (s Sensor) IsColor() bool {
	return s.Type == SensorBayer
}

// ROI is a rectangular readout region in native sensor pixels.
// A zero Width and Height selects the full sensor.
type ROI struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Full reports whether the ROI selects the whole sensor.
func (r ROI) Full() bool {
	return r == ROI{}
}

// RawFrame is a frame as delivered by the vendor SDK: unsigned 16-bit
// samples regardless of the actual sensor bit depth.
type RawFrame struct {
	// Pixels holds Width*Height samples, row-major.
	Pixels []uint16

	Width    int
	Height   int
	BitDepth int

	// HardwareCount is the frame counter reported by the camera.
	HardwareCount uint64

	// Timestamp is the host receive time.
	Timestamp time.Time
}

// Camera is an open camera handle.
//
// The acquisition sequence mirrors the vendor SDK: configure, Arm,
// IssueSoftwareTrigger, then poll PendingFrame until Disarm.
type Camera interface {
	// Info returns the camera identity.
	Info() CameraInfo

	// Sensor returns the fixed sensor description.
	Sensor() Sensor

	// ExposureTime returns the current exposure time.
	ExposureTime() (time.Duration, error)

	// SetExposureTime sets the exposure time.
	SetExposureTime(d time.Duration) error

	// Gain returns the current gain in dB.
	Gain() (float64, error)

	// SetGain sets the gain in dB.
	SetGain(db float64) error

	// BlackLevel returns the current black level offset in counts.
	BlackLevel() (int, error)

	// SetBlackLevel sets the black level offset in counts.
	SetBlackLevel(level int) error

	// ROI returns the active readout region.
	ROI() (ROI, error)

	// SetROI restricts readout to a region of the sensor. The zero ROI
	// restores the full frame. Fails with ErrCameraArmed while armed.
	SetROI(r ROI) error

	// SetFramesPerTrigger sets how many frames each trigger produces.
	// Zero means unlimited (continuous streaming).
	SetFramesPerTrigger(n uint) error

	// SetPollTimeout sets how long PendingFrame blocks waiting for a
	// frame. Zero makes PendingFrame fully non-blocking.
	SetPollTimeout(d time.Duration) error

	// Arm readies the camera for acquisition with the given number of
	// internal frame buffers.
	Arm(bufferCount int) error

	// Armed reports whether the camera is armed.
	Armed() bool

	// IssueSoftwareTrigger starts acquisition on an armed camera.
	IssueSoftwareTrigger() error

	// PendingFrame returns the next available frame, or (nil, nil) when
	// no frame is ready within the poll timeout.
	PendingFrame() (*RawFrame, error)

	// Disarm stops acquisition. Safe to call on an unarmed camera.
	Disarm() error

	// Close disarms if needed and releases the camera handle.
	io.Closer
}

// SDK is an initialized SDK handle that can discover and open cameras.
type SDK interface {
	// Discover returns the cameras currently visible to the SDK.
	Discover() ([]CameraInfo, error)

	// Open opens a camera by serial number.
	Open(serial string) (Camera, error)

	// OpenIndex opens the i-th discovered camera.
	OpenIndex(i int) (Camera, error)

	// Name returns the backend name (e.g., "thorlabs", "mock").
	Name() string

	// Close releases the SDK. All cameras must be closed first.
	io.Closer
}

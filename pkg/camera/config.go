// Package camera provides runtime-configurable acquisition settings for
// thorcam. This follows the same pattern as pkg/sdk for validated,
// JSON-serializable tunable parameters.
package camera

// Config holds all acquisition configuration parameters.
// These can be modified via the camera API at runtime.
type Config struct {
	// === Exposure ===
	// ExposureTimeUs is the exposure time in microseconds.
	ExposureTimeUs int `json:"exposure_time_us"`

	// GainDB is the analog gain in decibels (0 to 48).
	GainDB float64 `json:"gain_db"`

	// BlackLevel is the sensor black level offset in counts.
	BlackLevel int `json:"black_level"`

	// FrameRateFPS caps the delivered frame rate. Zero means uncapped:
	// frames stream as fast as the sensor produces them.
	FrameRateFPS float64 `json:"frame_rate_fps"`

	// === Delivery ===
	// Quality is the JPEG quality (1-100) used for encoded delivery.
	Quality int `json:"quality"`

	// QueueDepth is the capacity of the drop-oldest frame queue.
	QueueDepth int `json:"queue_depth"`

	// BufferCount is the number of internal SDK frame buffers to arm with.
	BufferCount int `json:"buffer_count"`

	// === Region of interest ===
	// All values in native sensor pixels. Zero width/height means full frame.
	ROIX      int `json:"roi_x"`
	ROIY      int `json:"roi_y"`
	ROIWidth  int `json:"roi_width"`
	ROIHeight int `json:"roi_height"`
}

// Sensor and queue limits.
const (
	MinExposureUs   = 64
	MaxExposureUs   = 10_000_000
	MaxGainDB       = 48.0
	MaxBlackLevel   = 4095
	MaxFrameRateFPS = 1000.0
	MaxQueueDepth   = 64
	MaxBuffers      = 16
)

// DefaultConfig returns the recommended streaming configuration.
// Queue depth 2 keeps delivery latency low: a consumer always finds the
// most recent frame or the one just behind it.
func DefaultConfig() Config {
	return Config{
		ExposureTimeUs: 10_000,
		GainDB:         0,
		BlackLevel:     0,
		FrameRateFPS:   0,
		Quality:        85,
		QueueDepth:     2,
		BufferCount:    2,
		ROIX:           0,
		ROIY:           0,
		ROIWidth:       0,
		ROIHeight:      0,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.ExposureTimeUs < MinExposureUs || c.ExposureTimeUs > MaxExposureUs {
		errors = append(errors, "exposure_time_us must be between 64 and 10000000")
	}
	if c.GainDB < 0 || c.GainDB > MaxGainDB {
		errors = append(errors, "gain_db must be between 0 and 48")
	}
	if c.BlackLevel < 0 || c.BlackLevel > MaxBlackLevel {
		errors = append(errors, "black_level must be between 0 and 4095")
	}
	if c.FrameRateFPS < 0 || c.FrameRateFPS > MaxFrameRateFPS {
		errors = append(errors, "frame_rate_fps must be between 0 and 1000")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}
	if c.QueueDepth < 1 || c.QueueDepth > MaxQueueDepth {
		errors = append(errors, "queue_depth must be between 1 and 64")
	}
	if c.BufferCount < 2 || c.BufferCount > MaxBuffers {
		errors = append(errors, "buffer_count must be between 2 and 16")
	}
	if c.ROIX < 0 || c.ROIY < 0 {
		errors = append(errors, "roi origin must not be negative")
	}
	if c.ROIWidth < 0 || c.ROIHeight < 0 {
		errors = append(errors, "roi size must not be negative")
	}
	if (c.ROIWidth == 0) != (c.ROIHeight == 0) {
		errors = append(errors, "roi_width and roi_height must be set together")
	}

	return errors
}

// Capabilities returns the tunable parameter ranges.
func Capabilities() map[string]interface{} {
	return map[string]interface{}{
		"min_exposure_us":    MinExposureUs,
		"max_exposure_us":    MaxExposureUs,
		"max_gain_db":        MaxGainDB,
		"max_black_level":    MaxBlackLevel,
		"max_frame_rate_fps": MaxFrameRateFPS,
		"max_queue_depth":    MaxQueueDepth,
		"max_buffers":        MaxBuffers,
	}
}

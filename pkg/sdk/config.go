package sdk

import (
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

// Backend represents the SDK backend type.
type Backend string

const (
	// BackendAuto automatically selects the best available backend.
	BackendAuto Backend = "auto"
	// BackendThorlabs uses the vendor DLLs (Windows only).
	BackendThorlabs Backend = "thorlabs"
	// BackendMock uses a synthetic camera for testing.
	BackendMock Backend = "mock"
)

// Config holds SDK configuration.
type Config struct {
	// Backend specifies which SDK backend to use.
	// Default: "auto" (thorlabs on Windows, mock elsewhere)
	Backend Backend `yaml:"backend" json:"backend"`

	// SDKDir is the directory holding the vendor DLLs.
	// Empty means the DLLs are resolved from PATH.
	// Ignored by the mock backend.
	SDKDir string `yaml:"sdk_dir" json:"sdk_dir"`

	// Mock configures the synthetic camera. Ignored by other backends.
	Mock MockConfig `yaml:"mock" json:"mock"`
}

// MockConfig describes the synthetic camera exposed by the mock backend.
type MockConfig struct {
	// Cameras is the number of cameras to simulate. Default: 1.
	Cameras int `yaml:"cameras" json:"cameras"`

	// SensorType of the simulated sensor. Default: monochrome.
	SensorType SensorType `yaml:"sensor_type" json:"sensor_type"`

	// Width and Height of the simulated sensor. Default: 640x480.
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`

	// BitDepth of the simulated sensor (8-16). Default: 12.
	BitDepth int `yaml:"bit_depth" json:"bit_depth"`

	// FrameInterval is the simulated time between frames.
	// Zero means a frame is pending on every poll, which is what tests
	// want. DefaultConfig uses 33ms for a realistic rate.
	FrameInterval time.Duration `yaml:"frame_interval" json:"frame_interval"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend: BackendAuto,
		Mock: MockConfig{
			Cameras:       1,
			SensorType:    SensorMonochrome,
			Width:         640,
			Height:        480,
			BitDepth:      12,
			FrameInterval: 33 * time.Millisecond,
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendAuto, BackendThorlabs, BackendMock, "":
	default:
		return fmt.Errorf("sdk: unknown backend %q", c.Backend)
	}
	if c.Backend == BackendMock || c.Backend == BackendAuto {
		m := c.Mock
		if m.Width < 0 || m.Height < 0 {
			return fmt.Errorf("sdk: mock resolution must not be negative, got %dx%d", m.Width, m.Height)
		}
		if m.BitDepth != 0 && (m.BitDepth < 8 || m.BitDepth > 16) {
			return fmt.Errorf("sdk: mock bit depth must be 8-16, got %d", m.BitDepth)
		}
	}
	return nil
}

// New creates an SDK handle with the given configuration.
// If cfg.Backend is BackendAuto, the best available backend is selected.
func New(cfg Config, logger *slog.Logger) (SDK, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	backend := cfg.Backend
	if backend == BackendAuto || backend == "" {
		backend = detectBestBackend()
	}

	logger.Info("initializing camera sdk",
		"backend", backend,
		"sdk_dir", cfg.SDKDir,
	)

	switch backend {
	case BackendMock:
		return NewMockSDK(cfg.Mock, logger), nil
	case BackendThorlabs:
		return newThorlabsSDK(cfg, logger)
	default:
		return nil, fmt.Errorf("sdk: unsupported backend %q", backend)
	}
}

// detectBestBackend returns the best available backend for the current platform.
func detectBestBackend() Backend {
	if runtime.GOOS == "windows" {
		return BackendThorlabs
	}
	return BackendMock
}

// AvailableBackends returns the list of backends available on this platform.
func AvailableBackends() []Backend {
	backends := []Backend{BackendMock}
	if runtime.GOOS == "windows" {
		backends = append(backends, BackendThorlabs)
	}
	return backends
}

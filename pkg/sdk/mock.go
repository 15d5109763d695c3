package sdk

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// MockSDK is a synthetic SDK backend for testing and development.
// It exposes one or more simulated cameras that produce a moving
// diagonal ramp pattern.
type MockSDK struct {
	cfg    MockConfig
	logger *slog.Logger

	mu      sync.Mutex
	closed  bool
	cameras []CameraInfo
	open    map[string]*MockCamera
}

// NewMockSDK creates a mock SDK with the configured simulated cameras.
func NewMockSDK(cfg MockConfig, logger *slog.Logger) *MockSDK {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Cameras <= 0 {
		cfg.Cameras = 1
	}
	if cfg.Width <= 0 {
		cfg.Width = 640
	}
	if cfg.Height <= 0 {
		cfg.Height = 480
	}
	if cfg.BitDepth == 0 {
		cfg.BitDepth = 12
	}
	if cfg.SensorType == "" {
		cfg.SensorType = SensorMonochrome
	}

	cameras := make([]CameraInfo, cfg.Cameras)
	for i := range cameras {
		cameras[i] = CameraInfo{
			Serial: fmt.Sprintf("MOCK%05d", i+1),
			Model:  "CS165MU-SIM",
			Name:   fmt.Sprintf("Mock Camera %d", i+1),
		}
	}

	return &MockSDK{
		cfg:     cfg,
		logger:  logger,
		cameras: cameras,
		open:    make(map[string]*MockCamera),
	}
}

// Discover returns the simulated cameras.
func (s *MockSDK) Discover() ([]CameraInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSDKClosed
	}
	out := make([]CameraInfo, len(s.cameras))
	copy(out, s.cameras)
	return out, nil
}

// Open opens a simulated camera by serial number.
func (s *MockSDK) Open(serial string) (Camera, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSDKClosed
	}
	for _, info := range s.cameras {
		if info.Serial == serial {
			cam := newMockCamera(info, s.cfg, s.logger)
			s.open[serial] = cam
			s.logger.Info("mock camera opened", "serial", serial)
			return cam, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCameraNotFound, serial)
}

// OpenIndex opens the i-th simulated camera.
func (s *MockSDK) OpenIndex(i int) (Camera, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSDKClosed
	}
	if i < 0 || i >= len(s.cameras) {
		n := len(s.cameras)
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: index %d, found %d cameras", ErrCameraIndexOutOfRange, i, n)
	}
	serial := s.cameras[i].Serial
	s.mu.Unlock()
	return s.Open(serial)
}

// Name returns "mock".
func (s *MockSDK) Name() string {
	return "mock"
}

// Close releases the mock SDK.
func (s *MockSDK) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Info("mock sdk closed")
	return nil
}

// MockCamera simulates a Thorlabs camera.
//
// Frames become pending at the configured frame interval after
// IssueSoftwareTrigger. A non-positive interval makes a frame pending on
// every poll, which is useful in tests.
type MockCamera struct {
	info   CameraInfo
	sensor Sensor
	logger *slog.Logger

	mu               sync.Mutex
	closed           bool
	armed            bool
	triggered        bool
	triggeredAt      time.Time
	delivered        uint64
	framesPerTrigger uint
	interval         time.Duration
	exposure         time.Duration
	gain             float64
	blackLevel       int
	roi              ROI
}

func newMockCamera(info CameraInfo, cfg MockConfig, logger *slog.Logger) *MockCamera {
	sensor := Sensor{
		Type:     cfg.SensorType,
		Width:    cfg.Width,
		Height:   cfg.Height,
		BitDepth: cfg.BitDepth,
		Phase:    PhaseBayerRed,
		// Identity matrices: the mosaic carries color as-is.
		ColorCorrection: [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1},
		WhiteBalance:    [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1},
	}
	return &MockCamera{
		info:     info,
		sensor:   sensor,
		logger:   logger,
		interval: cfg.FrameInterval,
		exposure: 10 * time.Millisecond,
		gain:     0,
		roi:      ROI{Width: sensor.Width, Height: sensor.Height},
	}
}

// Info returns the camera identity.
func (c *MockCamera) Info() CameraInfo { return c.info }

// Sensor returns the simulated sensor description.
func (c *MockCamera) Sensor() Sensor { return c.sensor }

// ExposureTime returns the simulated exposure time.
func (c *MockCamera) ExposureTime() (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrCameraClosed
	}
	return c.exposure, nil
}

// SetExposureTime sets the simulated exposure time.
func (c *MockCamera) SetExposureTime(d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCameraClosed
	}
	if d <= 0 {
		return fmt.Errorf("sdk: exposure time must be positive, got %v", d)
	}
	c.exposure = d
	return nil
}

// Gain returns the simulated gain in dB.
func (c *MockCamera) Gain() (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrCameraClosed
	}
	return c.gain, nil
}

// SetGain sets the simulated gain in dB.
func (c *MockCamera) SetGain(db float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCameraClosed
	}
	if db < 0 || db > 48 {
		return fmt.Errorf("sdk: gain must be 0-48 dB, got %v", db)
	}
	c.gain = db
	return nil
}

// BlackLevel returns the simulated black level offset.
func (c *MockCamera) BlackLevel() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrCameraClosed
	}
	return c.blackLevel, nil
}

// SetBlackLevel sets the simulated black level offset.
func (c *MockCamera) SetBlackLevel(level int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCameraClosed
	}
	maxVal := 1<<uint(c.sensor.BitDepth) - 1
	if level < 0 || level > maxVal {
		return fmt.Errorf("sdk: black level must be 0-%d, got %d", maxVal, level)
	}
	c.blackLevel = level
	return nil
}

// ROI returns the active readout region.
func (c *MockCamera) ROI() (ROI, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ROI{}, ErrCameraClosed
	}
	return c.roi, nil
}

// SetROI restricts readout to a region of the sensor. The origin snaps
// down to even coordinates so a Bayer mosaic keeps its phase, which is
// what the real hardware does.
func (c *MockCamera) SetROI(r ROI) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCameraClosed
	}
	if c.armed {
		return ErrCameraArmed
	}
	if r.Full() {
		c.roi = ROI{Width: c.sensor.Width, Height: c.sensor.Height}
		return nil
	}

	r.X &^= 1
	r.Y &^= 1
	if r.Width < 1 || r.Height < 1 || r.X < 0 || r.Y < 0 ||
		r.X+r.Width > c.sensor.Width || r.Y+r.Height > c.sensor.Height {
		return fmt.Errorf("sdk: roi %+v outside %dx%d sensor", r, c.sensor.Width, c.sensor.Height)
	}
	c.roi = r
	return nil
}

// SetFramesPerTrigger sets how many frames each trigger produces.
func (c *MockCamera) SetFramesPerTrigger(n uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCameraClosed
	}
	c.framesPerTrigger = n
	return nil
}

// SetPollTimeout is accepted but the mock never blocks in PendingFrame.
func (c *MockCamera) SetPollTimeout(d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCameraClosed
	}
	return nil
}

// Arm readies the simulated camera.
func (c *MockCamera) Arm(bufferCount int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCameraClosed
	}
	if c.armed {
		return ErrAlreadyArmed
	}
	if bufferCount < 1 {
		return fmt.Errorf("sdk: buffer count must be at least 1, got %d", bufferCount)
	}
	c.armed = true
	c.triggered = false
	c.delivered = 0
	return nil
}

// Armed reports whether the camera is armed.
func (c *MockCamera) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

// IssueSoftwareTrigger starts simulated acquisition.
func (c *MockCamera) IssueSoftwareTrigger() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCameraClosed
	}
	if !c.armed {
		return ErrNotArmed
	}
	c.triggered = true
	c.triggeredAt = time.Now()
	return nil
}

// PendingFrame returns the next simulated frame, or (nil, nil) when
// no frame is due yet.
func (c *MockCamera) PendingFrame() (*RawFrame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrCameraClosed
	}
	if !c.armed {
		return nil, ErrNotArmed
	}
	if !c.triggered {
		return nil, nil
	}
	if c.framesPerTrigger > 0 && c.delivered >= uint64(c.framesPerTrigger) {
		return nil, nil
	}
	if c.interval > 0 {
		due := uint64(time.Since(c.triggeredAt) / c.interval)
		if c.delivered >= due {
			return nil, nil
		}
	}

	c.delivered++
	return c.generateFrame(c.delivered), nil
}

// generateFrame renders a moving diagonal ramp across the active ROI.
// Must be called with the mutex held.
func (c *MockCamera) generateFrame(n uint64) *RawFrame {
	w, h := c.roi.Width, c.roi.Height
	maxVal := uint32(1)<<uint(c.sensor.BitDepth) - 1

	// a single-column region has no gradient to spread
	denom := uint32(1)
	if w > 1 {
		denom = uint32(w - 1)
	}

	pixels := make([]uint16, w*h)
	shift := int(n * 4)
	black := uint32(c.blackLevel)
	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < w; x++ {
			v := uint32((c.roi.X+x+c.roi.Y+y+shift)%w)*maxVal/denom + black
			if v > maxVal {
				v = maxVal
			}
			pixels[row+x] = uint16(v)
		}
	}

	return &RawFrame{
		Pixels:        pixels,
		Width:         w,
		Height:        h,
		BitDepth:      c.sensor.BitDepth,
		HardwareCount: n,
		Timestamp:     time.Now(),
	}
}

// Disarm stops simulated acquisition.
func (c *MockCamera) Disarm() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCameraClosed
	}
	c.armed = false
	c.triggered = false
	return nil
}

// Close releases the simulated camera.
func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.armed = false
	c.triggered = false
	c.closed = true
	c.logger.Info("mock camera closed", "serial", c.info.Serial)
	return nil
}

// Ensure the mock types implement the interfaces.
var (
	_ SDK    = (*MockSDK)(nil)
	_ Camera = (*MockCamera)(nil)
)

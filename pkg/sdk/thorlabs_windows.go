//go:build windows

package sdk

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Binding over the vendor camera DLL. All tl_camera_* functions return 0
// on success and a vendor error code otherwise. Frame buffers returned by
// tl_camera_get_pending_frame_or_null are owned by the SDK and only valid
// until the next poll, so they are copied out immediately.
var (
	dllOnce sync.Once
	dllErr  error

	camDLL *windows.LazyDLL

	procOpenSDK           *windows.LazyProc
	procCloseSDK          *windows.LazyProc
	procDiscover          *windows.LazyProc
	procOpenCamera        *windows.LazyProc
	procCloseCamera       *windows.LazyProc
	procArm               *windows.LazyProc
	procDisarm            *windows.LazyProc
	procTrigger           *windows.LazyProc
	procPendingFrame      *windows.LazyProc
	procSetFramesPerTrig  *windows.LazyProc
	procSetPollTimeout    *windows.LazyProc
	procGetWidth          *windows.LazyProc
	procGetHeight         *windows.LazyProc
	procGetBitDepth       *windows.LazyProc
	procGetSensorType     *windows.LazyProc
	procGetCFAPhase       *windows.LazyProc
	procGetCCM            *windows.LazyProc
	procGetWBM            *windows.LazyProc
	procGetExposure       *windows.LazyProc
	procSetExposure       *windows.LazyProc
	procGetGain           *windows.LazyProc
	procSetGain           *windows.LazyProc
	procGetBlackLevel     *windows.LazyProc
	procSetBlackLevel     *windows.LazyProc
	procGetROI            *windows.LazyProc
	procSetROI            *windows.LazyProc
	procGetModel          *windows.LazyProc
	procGetName           *windows.LazyProc
	procGetLastError      *windows.LazyProc
)

func loadDLL(sdkDir string) error {
	dllOnce.Do(func() {
		if sdkDir != "" {
			if err := windows.SetDllDirectory(sdkDir); err != nil {
				dllErr = fmt.Errorf("sdk: set dll directory %q: %w", sdkDir, err)
				return
			}
		}

		camDLL = windows.NewLazyDLL("thorlabs_tsi_camera_sdk.dll")
		if err := camDLL.Load(); err != nil {
			dllErr = fmt.Errorf("sdk: load thorlabs_tsi_camera_sdk.dll: %w", err)
			return
		}

		procOpenSDK = camDLL.NewProc("tl_camera_open_sdk")
		procCloseSDK = camDLL.NewProc("tl_camera_close_sdk")
		procDiscover = camDLL.NewProc("tl_camera_discover_available_cameras")
		procOpenCamera = camDLL.NewProc("tl_camera_open_camera")
		procCloseCamera = camDLL.NewProc("tl_camera_close_camera")
		procArm = camDLL.NewProc("tl_camera_arm")
		procDisarm = camDLL.NewProc("tl_camera_disarm")
		procTrigger = camDLL.NewProc("tl_camera_issue_software_trigger")
		procPendingFrame = camDLL.NewProc("tl_camera_get_pending_frame_or_null")
		procSetFramesPerTrig = camDLL.NewProc("tl_camera_set_frames_per_trigger_zero_for_unlimited")
		procSetPollTimeout = camDLL.NewProc("tl_camera_set_image_poll_timeout")
		procGetWidth = camDLL.NewProc("tl_camera_get_image_width")
		procGetHeight = camDLL.NewProc("tl_camera_get_image_height")
		procGetBitDepth = camDLL.NewProc("tl_camera_get_bit_depth")
		procGetSensorType = camDLL.NewProc("tl_camera_get_camera_sensor_type")
		procGetCFAPhase = camDLL.NewProc("tl_camera_get_color_filter_array_phase")
		procGetCCM = camDLL.NewProc("tl_camera_get_color_correction_matrix")
		procGetWBM = camDLL.NewProc("tl_camera_get_default_white_balance_matrix")
		procGetExposure = camDLL.NewProc("tl_camera_get_exposure_time")
		procSetExposure = camDLL.NewProc("tl_camera_set_exposure_time")
		procGetGain = camDLL.NewProc("tl_camera_get_gain")
		procSetGain = camDLL.NewProc("tl_camera_set_gain")
		procGetBlackLevel = camDLL.NewProc("tl_camera_get_black_level")
		procSetBlackLevel = camDLL.NewProc("tl_camera_set_black_level")
		procGetROI = camDLL.NewProc("tl_camera_get_roi")
		procSetROI = camDLL.NewProc("tl_camera_set_roi")
		procGetModel = camDLL.NewProc("tl_camera_get_model")
		procGetName = camDLL.NewProc("tl_camera_get_name")
		procGetLastError = camDLL.NewProc("tl_camera_get_last_error")
	})
	return dllErr
}

// lastError fetches the vendor error string, if any.
func lastError() string {
	ret, _, _ := procGetLastError.Call()
	if ret == 0 {
		return ""
	}
	return windows.BytePtrToString((*byte)(unsafe.Pointer(ret)))
}

// call invokes a vendor proc and translates nonzero returns.
func call(op string, proc *windows.LazyProc, args ...uintptr) error {
	ret, _, _ := proc.Call(args...)
	if ret != 0 {
		return NewVendorError(op, int(ret), lastError())
	}
	return nil
}

type thorlabsSDK struct {
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	serial []string // discovery cache for OpenIndex
}

func newThorlabsSDK(cfg Config, logger *slog.Logger) (SDK, error) {
	if err := loadDLL(cfg.SDKDir); err != nil {
		return nil, err
	}
	if err := call("tl_camera_open_sdk", procOpenSDK); err != nil {
		return nil, err
	}
	logger.Info("thorlabs sdk initialized")
	return &thorlabsSDK{logger: logger}, nil
}

func (s *thorlabsSDK) Discover() ([]CameraInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSDKClosed
	}

	// The SDK writes a space-separated serial list into the buffer.
	buf := make([]byte, 1024)
	if err := call("tl_camera_discover_available_cameras", procDiscover,
		uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf))); err != nil {
		return nil, err
	}

	list := strings.TrimSpace(windows.ByteSliceToString(buf))
	if list == "" {
		s.serial = nil
		return nil, nil
	}

	serials := strings.Fields(list)
	s.serial = serials

	infos := make([]CameraInfo, len(serials))
	for i, sn := range serials {
		infos[i] = CameraInfo{Serial: sn}
	}
	return infos, nil
}

func (s *thorlabsSDK) Open(serial string) (Camera, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSDKClosed
	}

	cser, err := windows.BytePtrFromString(serial)
	if err != nil {
		return nil, fmt.Errorf("sdk: bad serial %q: %w", serial, err)
	}

	var handle uintptr
	if err := call("tl_camera_open_camera", procOpenCamera,
		uintptr(unsafe.Pointer(cser)), uintptr(unsafe.Pointer(&handle))); err != nil {
		return nil, err
	}

	cam := &thorlabsCamera{handle: handle, logger: s.logger}
	if err := cam.readSensor(serial); err != nil {
		cam.Close()
		return nil, err
	}

	s.logger.Info("camera opened",
		"serial", serial,
		"model", cam.info.Model,
		"sensor", cam.sensor.Type,
		"resolution", fmt.Sprintf("%dx%d", cam.sensor.Width, cam.sensor.Height),
		"bit_depth", cam.sensor.BitDepth,
	)
	return cam, nil
}

func (s *thorlabsSDK) OpenIndex(i int) (Camera, error) {
	s.mu.Lock()
	cached := s.serial
	s.mu.Unlock()

	if cached == nil {
		infos, err := s.Discover()
		if err != nil {
			return nil, err
		}
		cached = make([]string, len(infos))
		for j, info := range infos {
			cached[j] = info.Serial
		}
	}

	if len(cached) == 0 {
		return nil, ErrNoCamerasFound
	}
	if i < 0 || i >= len(cached) {
		return nil, fmt.Errorf("%w: index %d, found %d cameras", ErrCameraIndexOutOfRange, i, len(cached))
	}
	return s.Open(cached[i])
}

func (s *thorlabsSDK) Name() string {
	return "thorlabs"
}

func (s *thorlabsSDK) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := call("tl_camera_close_sdk", procCloseSDK); err != nil {
		return err
	}
	s.logger.Info("thorlabs sdk closed")
	return nil
}

type thorlabsCamera struct {
	handle uintptr
	logger *slog.Logger

	info   CameraInfo
	sensor Sensor

	mu     sync.Mutex
	closed bool
	armed  bool
	roi    ROI
}

// Vendor sensor type codes.
const (
	tlSensorMonochrome          = 0
	tlSensorBayer               = 1
	tlSensorMonochromePolarized = 2
)

func (c *thorlabsCamera) readSensor(serial string) error {
	c.info.Serial = serial

	name := make([]byte, 256)
	if err := call("tl_camera_get_name", procGetName,
		c.handle, uintptr(unsafe.Pointer(&name[0])), uintptr(len(name))); err != nil {
		return err
	}
	c.info.Name = windows.ByteSliceToString(name)

	model := make([]byte, 256)
	if err := call("tl_camera_get_model", procGetModel,
		c.handle, uintptr(unsafe.Pointer(&model[0])), uintptr(len(model))); err != nil {
		return err
	}
	c.info.Model = windows.ByteSliceToString(model)

	var width, height, depth, sensorType int32
	if err := call("tl_camera_get_image_width", procGetWidth,
		c.handle, uintptr(unsafe.Pointer(&width))); err != nil {
		return err
	}
	if err := call("tl_camera_get_image_height", procGetHeight,
		c.handle, uintptr(unsafe.Pointer(&height))); err != nil {
		return err
	}
	if err := call("tl_camera_get_bit_depth", procGetBitDepth,
		c.handle, uintptr(unsafe.Pointer(&depth))); err != nil {
		return err
	}
	if err := call("tl_camera_get_camera_sensor_type", procGetSensorType,
		c.handle, uintptr(unsafe.Pointer(&sensorType))); err != nil {
		return err
	}

	c.sensor.Width = int(width)
	c.sensor.Height = int(height)
	c.sensor.BitDepth = int(depth)
	c.roi = ROI{Width: c.sensor.Width, Height: c.sensor.Height}

	switch sensorType {
	case tlSensorBayer:
		c.sensor.Type = SensorBayer
	case tlSensorMonochromePolarized:
		c.sensor.Type = SensorMonochromePolarized
	default:
		c.sensor.Type = SensorMonochrome
	}

	if c.sensor.Type == SensorBayer {
		var phase int32
		if err := call("tl_camera_get_color_filter_array_phase", procGetCFAPhase,
			c.handle, uintptr(unsafe.Pointer(&phase))); err != nil {
			return err
		}
		c.sensor.Phase = CFAPhase(phase)

		var ccm, wbm [9]float32
		if err := call("tl_camera_get_color_correction_matrix", procGetCCM,
			c.handle, uintptr(unsafe.Pointer(&ccm[0]))); err != nil {
			return err
		}
		if err := call("tl_camera_get_default_white_balance_matrix", procGetWBM,
			c.handle, uintptr(unsafe.Pointer(&wbm[0]))); err != nil {
			return err
		}
		for i := 0; i < 9; i++ {
			c.sensor.ColorCorrection[i] = float64(ccm[i])
			c.sensor.WhiteBalance[i] = float64(wbm[i])
		}
	}

	return nil
}

func (c *thorlabsCamera) Info() CameraInfo { return c.info }
func (c *thorlabsCamera) Sensor() Sensor   { return c.sensor }

func (c *thorlabsCamera) ExposureTime() (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrCameraClosed
	}
	var us int64
	if err := call("tl_camera_get_exposure_time", procGetExposure,
		c.handle, uintptr(unsafe.Pointer(&us))); err != nil {
		return 0, err
	}
	return time.Duration(us) * time.Microsecond, nil
}

func (c *thorlabsCamera) SetExposureTime(d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCameraClosed
	}
	if d <= 0 {
		return fmt.Errorf("sdk: exposure time must be positive, got %v", d)
	}
	return call("tl_camera_set_exposure_time", procSetExposure,
		c.handle, uintptr(d.Microseconds()))
}

func (c *thorlabsCamera) Gain() (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrCameraClosed
	}
	// The SDK reports gain in tenths of a dB.
	var tenths int32
	if err := call("tl_camera_get_gain", procGetGain,
		c.handle, uintptr(unsafe.Pointer(&tenths))); err != nil {
		return 0, err
	}
	return float64(tenths) / 10, nil
}

func (c *thorlabsCamera) SetGain(db float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCameraClosed
	}
	return call("tl_camera_set_gain", procSetGain,
		c.handle, uintptr(int32(db*10)))
}

func (c *thorlabsCamera) BlackLevel() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrCameraClosed
	}
	var level int32
	if err := call("tl_camera_get_black_level", procGetBlackLevel,
		c.handle, uintptr(unsafe.Pointer(&level))); err != nil {
		return 0, err
	}
	return int(level), nil
}

func (c *thorlabsCamera) SetBlackLevel(level int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCameraClosed
	}
	if level < 0 {
		return fmt.Errorf("sdk: black level must not be negative, got %d", level)
	}
	return call("tl_camera_set_black_level", procSetBlackLevel,
		c.handle, uintptr(level))
}

func (c *thorlabsCamera) ROI() (ROI, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ROI{}, ErrCameraClosed
	}

	// The SDK reports upper-left and lower-right corners, inclusive.
	var ulx, uly, lrx, lry int32
	if err := call("tl_camera_get_roi", procGetROI, c.handle,
		uintptr(unsafe.Pointer(&ulx)), uintptr(unsafe.Pointer(&uly)),
		uintptr(unsafe.Pointer(&lrx)), uintptr(unsafe.Pointer(&lry))); err != nil {
		return ROI{}, err
	}
	return ROI{
		X:      int(ulx),
		Y:      int(uly),
		Width:  int(lrx-ulx) + 1,
		Height: int(lry-uly) + 1,
	}, nil
}

func (c *thorlabsCamera) SetROI(r ROI) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCameraClosed
	}
	if c.armed {
		return ErrCameraArmed
	}
	if r.Full() {
		r = ROI{Width: c.sensor.Width, Height: c.sensor.Height}
	}
	if r.Width < 1 || r.Height < 1 || r.X < 0 || r.Y < 0 ||
		r.X+r.Width > c.sensor.Width || r.Y+r.Height > c.sensor.Height {
		return fmt.Errorf("sdk: roi %+v outside %dx%d sensor", r, c.sensor.Width, c.sensor.Height)
	}

	if err := call("tl_camera_set_roi", procSetROI, c.handle,
		uintptr(r.X), uintptr(r.Y),
		uintptr(r.X+r.Width-1), uintptr(r.Y+r.Height-1)); err != nil {
		return err
	}

	// Read back: the hardware quantizes the region.
	var ulx, uly, lrx, lry int32
	if err := call("tl_camera_get_roi", procGetROI, c.handle,
		uintptr(unsafe.Pointer(&ulx)), uintptr(unsafe.Pointer(&uly)),
		uintptr(unsafe.Pointer(&lrx)), uintptr(unsafe.Pointer(&lry))); err != nil {
		return err
	}
	c.roi = ROI{
		X:      int(ulx),
		Y:      int(uly),
		Width:  int(lrx-ulx) + 1,
		Height: int(lry-uly) + 1,
	}
	return nil
}

func (c *thorlabsCamera) SetFramesPerTrigger(n uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCameraClosed
	}
	return call("tl_camera_set_frames_per_trigger_zero_for_unlimited", procSetFramesPerTrig,
		c.handle, uintptr(n))
}

func (c *thorlabsCamera) SetPollTimeout(d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCameraClosed
	}
	return call("tl_camera_set_image_poll_timeout", procSetPollTimeout,
		c.handle, uintptr(d.Milliseconds()))
}

func (c *thorlabsCamera) Arm(bufferCount int) error {
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
	if err := call("tl_camera_arm", procArm, c.handle, uintptr(bufferCount)); err != nil {
		return err
	}
	c.armed = true
	return nil
}

func (c *thorlabsCamera) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

func (c *thorlabsCamera) IssueSoftwareTrigger() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCameraClosed
	}
	if !c.armed {
		return ErrNotArmed
	}
	return call("tl_camera_issue_software_trigger", procTrigger, c.handle)
}

func (c *thorlabsCamera) PendingFrame() (*RawFrame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrCameraClosed
	}
	if !c.armed {
		return nil, ErrNotArmed
	}

	var (
		imgPtr       uintptr
		frameCount   int32
		metadataPtr  uintptr
		metadataSize int32
	)
	if err := call("tl_camera_get_pending_frame_or_null", procPendingFrame,
		c.handle,
		uintptr(unsafe.Pointer(&imgPtr)),
		uintptr(unsafe.Pointer(&frameCount)),
		uintptr(unsafe.Pointer(&metadataPtr)),
		uintptr(unsafe.Pointer(&metadataSize))); err != nil {
		return nil, err
	}
	if imgPtr == 0 {
		return nil, nil
	}

	n := c.roi.Width * c.roi.Height
	src := unsafe.Slice((*uint16)(unsafe.Pointer(imgPtr)), n)

	// The SDK reuses this buffer on the next poll.
	pixels := make([]uint16, n)
	copy(pixels, src)

	return &RawFrame{
		Pixels:        pixels,
		Width:         c.roi.Width,
		Height:        c.roi.Height,
		BitDepth:      c.sensor.BitDepth,
		HardwareCount: uint64(frameCount),
		Timestamp:     time.Now(),
	}, nil
}

func (c *thorlabsCamera) Disarm() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCameraClosed
	}
	if !c.armed {
		return nil
	}
	if err := call("tl_camera_disarm", procDisarm, c.handle); err != nil {
		return err
	}
	c.armed = false
	return nil
}

func (c *thorlabsCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	if c.armed {
		if err := call("tl_camera_disarm", procDisarm, c.handle); err != nil {
			c.logger.Warn("disarm on close failed", "serial", c.info.Serial, "error", err)
		}
		c.armed = false
	}
	c.closed = true
	return call("tl_camera_close_camera", procCloseCamera, c.handle)
}

var (
	_ SDK    = (*thorlabsSDK)(nil)
	_ Camera = (*thorlabsCamera)(nil)
)

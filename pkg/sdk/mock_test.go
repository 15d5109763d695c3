package sdk

import (
	"errors"
	"testing"
	"time"
)

func testMockConfig() MockConfig {
	return MockConfig{
		Width:    32,
		Height:   24,
		BitDepth: 10,
	}
}

func TestMockSDK_Discover(t *testing.T) {
	s := NewMockSDK(MockConfig{Cameras: 2}, nil)
	defer s.Close()

	cameras, err := s.Discover()
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(cameras) != 2 {
		t.Fatalf("expected 2 cameras, got %d", len(cameras))
	}
	if cameras[0].Serial == cameras[1].Serial {
		t.Error("expected distinct serials")
	}
}

func TestMockSDK_OpenIndex_OutOfRange(t *testing.T) {
	s := NewMockSDK(testMockConfig(), nil)
	defer s.Close()

	if _, err := s.OpenIndex(5); !errors.Is(err, ErrCameraIndexOutOfRange) {
		t.Errorf("expected ErrCameraIndexOutOfRange, got %v", err)
	}
}

func TestMockSDK_Open_UnknownSerial(t *testing.T) {
	s := NewMockSDK(testMockConfig(), nil)
	defer s.Close()

	if _, err := s.Open("NOPE"); !errors.Is(err, ErrCameraNotFound) {
		t.Errorf("expected ErrCameraNotFound, got %v", err)
	}
}

func TestMockSDK_UseAfterClose(t *testing.T) {
	s := NewMockSDK(testMockConfig(), nil)
	s.Close()

	if _, err := s.Discover(); !errors.Is(err, ErrSDKClosed) {
		t.Errorf("expected ErrSDKClosed, got %v", err)
	}
	// Close is idempotent
	if err := s.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestMockCamera_AcquisitionLifecycle(t *testing.T) {
	s := NewMockSDK(testMockConfig(), nil)
	defer s.Close()

	cam, err := s.OpenIndex(0)
	if err != nil {
		t.Fatalf("OpenIndex failed: %v", err)
	}
	defer cam.Close()

	// Poll before arming must fail
	if _, err := cam.PendingFrame(); !errors.Is(err, ErrNotArmed) {
		t.Errorf("expected ErrNotArmed, got %v", err)
	}

	if err := cam.Arm(2); err != nil {
		t.Fatalf("Arm failed: %v", err)
	}
	if err := cam.Arm(2); !errors.Is(err, ErrAlreadyArmed) {
		t.Errorf("expected ErrAlreadyArmed, got %v", err)
	}

	// Armed but not triggered: no frame, no error
	raw, err := cam.PendingFrame()
	if err != nil {
		t.Fatalf("PendingFrame failed: %v", err)
	}
	if raw != nil {
		t.Error("expected no frame before trigger")
	}

	if err := cam.IssueSoftwareTrigger(); err != nil {
		t.Fatalf("IssueSoftwareTrigger failed: %v", err)
	}

	raw, err = cam.PendingFrame()
	if err != nil {
		t.Fatalf("PendingFrame failed: %v", err)
	}
	if raw == nil {
		t.Fatal("expected a frame after trigger")
	}
	if len(raw.Pixels) != 32*24 {
		t.Errorf("expected %d pixels, got %d", 32*24, len(raw.Pixels))
	}
	if raw.BitDepth != 10 {
		t.Errorf("expected bit depth 10, got %d", raw.BitDepth)
	}

	// 10-bit samples must stay within range
	for i, px := range raw.Pixels {
		if px > 1023 {
			t.Fatalf("pixel %d exceeds 10-bit range: %d", i, px)
		}
	}

	if err := cam.Disarm(); err != nil {
		t.Fatalf("Disarm failed: %v", err)
	}
	if _, err := cam.PendingFrame(); !errors.Is(err, ErrNotArmed) {
		t.Errorf("expected ErrNotArmed after disarm, got %v", err)
	}
}

func TestMockCamera_FramesPerTrigger(t *testing.T) {
	s := NewMockSDK(testMockConfig(), nil)
	defer s.Close()

	cam, _ := s.OpenIndex(0)
	defer cam.Close()

	cam.SetFramesPerTrigger(2)
	cam.Arm(2)
	cam.IssueSoftwareTrigger()

	var got int
	for i := 0; i < 5; i++ {
		raw, err := cam.PendingFrame()
		if err != nil {
			t.Fatalf("PendingFrame failed: %v", err)
		}
		if raw != nil {
			got++
		}
	}
	if got != 2 {
		t.Errorf("expected exactly 2 frames, got %d", got)
	}
}

func TestMockCamera_FrameInterval(t *testing.T) {
	cfg := testMockConfig()
	cfg.FrameInterval = time.Hour // nothing should be due within the test

	s := NewMockSDK(cfg, nil)
	defer s.Close()

	cam, _ := s.OpenIndex(0)
	defer cam.Close()

	cam.Arm(2)
	cam.IssueSoftwareTrigger()

	raw, err := cam.PendingFrame()
	if err != nil {
		t.Fatalf("PendingFrame failed: %v", err)
	}
	if raw != nil {
		t.Error("expected no frame before the interval elapsed")
	}
}

func TestMockCamera_SequentialHardwareCount(t *testing.T) {
	s := NewMockSDK(testMockConfig(), nil)
	defer s.Close()

	cam, _ := s.OpenIndex(0)
	defer cam.Close()

	cam.Arm(2)
	cam.IssueSoftwareTrigger()

	for want := uint64(1); want <= 3; want++ {
		raw, err := cam.PendingFrame()
		if err != nil {
			t.Fatalf("PendingFrame failed: %v", err)
		}
		if raw.HardwareCount != want {
			t.Errorf("frame count: got %d, want %d", raw.HardwareCount, want)
		}
	}
}

func TestMockCamera_Settings(t *testing.T) {
	s := NewMockSDK(testMockConfig(), nil)
	defer s.Close()

	cam, _ := s.OpenIndex(0)
	defer cam.Close()

	if err := cam.SetExposureTime(5 * time.Millisecond); err != nil {
		t.Fatalf("SetExposureTime failed: %v", err)
	}
	exp, err := cam.ExposureTime()
	if err != nil || exp != 5*time.Millisecond {
		t.Errorf("exposure: got %v, %v", exp, err)
	}

	if err := cam.SetExposureTime(0); err == nil {
		t.Error("expected error for zero exposure")
	}

	if err := cam.SetGain(12.5); err != nil {
		t.Fatalf("SetGain failed: %v", err)
	}
	gain, err := cam.Gain()
	if err != nil || gain != 12.5 {
		t.Errorf("gain: got %v, %v", gain, err)
	}

	if err := cam.SetGain(100); err == nil {
		t.Error("expected error for out-of-range gain")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	cfg.Backend = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown backend")
	}

	cfg = DefaultConfig()
	cfg.Mock.BitDepth = 4
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for bit depth below 8")
	}
}

func TestNew_MockBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = BackendMock

	s, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer s.Close()

	if s.Name() != "mock" {
		t.Errorf("backend name: got %q, want mock", s.Name())
	}
}

func TestMockCamera_SingleColumnSensor(t *testing.T) {
	cfg := Config{Backend: BackendMock, Mock: MockConfig{Width: 1, Height: 4, BitDepth: 10}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config rejected: %v", err)
	}

	s := NewMockSDK(cfg.Mock, nil)
	defer s.Close()

	cam, err := s.OpenIndex(0)
	if err != nil {
		t.Fatalf("OpenIndex failed: %v", err)
	}
	defer cam.Close()

	cam.Arm(2)
	cam.IssueSoftwareTrigger()

	raw, err := cam.PendingFrame()
	if err != nil {
		t.Fatalf("PendingFrame failed: %v", err)
	}
	if raw == nil || len(raw.Pixels) != 4 {
		t.Fatalf("expected a 1x4 frame, got %+v", raw)
	}
	for i, px := range raw.Pixels {
		if px > 1023 {
			t.Errorf("pixel %d out of 10-bit range: %d", i, px)
		}
	}
}

func TestMockCamera_ROI(t *testing.T) {
	s := NewMockSDK(testMockConfig(), nil)
	defer s.Close()

	cam, _ := s.OpenIndex(0)
	defer cam.Close()

	roi, err := cam.ROI()
	if err != nil {
		t.Fatalf("ROI failed: %v", err)
	}
	if roi.Width != 32 || roi.Height != 24 {
		t.Fatalf("initial roi: got %+v, want full 32x24", roi)
	}

	// origin snaps down to even coordinates
	if err := cam.SetROI(ROI{X: 5, Y: 3, Width: 8, Height: 8}); err != nil {
		t.Fatalf("SetROI failed: %v", err)
	}
	roi, _ = cam.ROI()
	if roi.X != 4 || roi.Y != 2 || roi.Width != 8 || roi.Height != 8 {
		t.Errorf("roi: got %+v, want {4 2 8 8}", roi)
	}

	cam.Arm(2)
	cam.IssueSoftwareTrigger()

	raw, err := cam.PendingFrame()
	if err != nil {
		t.Fatalf("PendingFrame failed: %v", err)
	}
	if raw.Width != 8 || raw.Height != 8 || len(raw.Pixels) != 64 {
		t.Errorf("roi frame: got %dx%d with %d pixels", raw.Width, raw.Height, len(raw.Pixels))
	}

	// changing the region requires a disarmed camera
	if err := cam.SetROI(ROI{Width: 16, Height: 16}); !errors.Is(err, ErrCameraArmed) {
		t.Errorf("expected ErrCameraArmed, got %v", err)
	}

	cam.Disarm()

	if err := cam.SetROI(ROI{X: 30, Y: 0, Width: 16, Height: 8}); err == nil {
		t.Error("expected error for roi outside the sensor")
	}

	// zero ROI restores the full frame
	if err := cam.SetROI(ROI{}); err != nil {
		t.Fatalf("SetROI reset failed: %v", err)
	}
	roi, _ = cam.ROI()
	if roi.Width != 32 || roi.Height != 24 {
		t.Errorf("reset roi: got %+v, want full 32x24", roi)
	}
}

func TestMockCamera_BlackLevel(t *testing.T) {
	s := NewMockSDK(testMockConfig(), nil)
	defer s.Close()

	cam, _ := s.OpenIndex(0)
	defer cam.Close()

	if err := cam.SetBlackLevel(64); err != nil {
		t.Fatalf("SetBlackLevel failed: %v", err)
	}
	level, err := cam.BlackLevel()
	if err != nil || level != 64 {
		t.Errorf("black level: got %d, %v", level, err)
	}

	if err := cam.SetBlackLevel(-1); err == nil {
		t.Error("expected error for negative black level")
	}
	if err := cam.SetBlackLevel(1 << 12); err == nil {
		t.Error("expected error for black level beyond sensor depth")
	}

	cam.Arm(2)
	cam.IssueSoftwareTrigger()

	raw, err := cam.PendingFrame()
	if err != nil {
		t.Fatalf("PendingFrame failed: %v", err)
	}
	for i, px := range raw.Pixels {
		if px < 64 {
			t.Fatalf("pixel %d below black level: %d", i, px)
		}
		if px > 1023 {
			t.Fatalf("pixel %d out of 10-bit range: %d", i, px)
		}
	}
}

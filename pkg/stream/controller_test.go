package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/visikit/thorcam/pkg/camera"
	"github.com/visikit/thorcam/pkg/sdk"
)

func mockOpenConfig() OpenConfig {
	cfg := OpenConfig{
		SDK: sdk.DefaultConfig(),
	}
	cfg.SDK.Backend = sdk.BackendMock
	cfg.SDK.Mock.Width = 32
	cfg.SDK.Mock.Height = 24
	cfg.SDK.Mock.BitDepth = 10
	cfg.SDK.Mock.FrameInterval = 0 // frame on every poll
	return cfg
}

func TestOpen_Lifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ctrl, err := Open(ctx, mockOpenConfig(), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	f, err := ctrl.Frame(ctx)
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if f.Width != 32 {
		t.Errorf("frame width: got %d, want 32", f.Width)
	}

	stats := ctrl.Stats()
	if stats.Backend != "mock" {
		t.Errorf("backend: got %q, want mock", stats.Backend)
	}

	if err := ctrl.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// Close is idempotent
	if err := ctrl.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func TestOpen_IndexOutOfRange(t *testing.T) {
	cfg := mockOpenConfig()
	cfg.CameraIndex = 9

	_, err := Open(context.Background(), cfg, nil)
	if !errors.Is(err, sdk.ErrCameraIndexOutOfRange) {
		t.Errorf("expected ErrCameraIndexOutOfRange, got %v", err)
	}
}

func TestOpen_AppliesAcquisitionSettings(t *testing.T) {
	cfg := mockOpenConfig()
	cfg.Acquisition = camera.DefaultConfig()
	cfg.Acquisition.ExposureTimeUs = 5_000
	cfg.Acquisition.GainDB = 6

	ctrl, err := Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer ctrl.Close()

	exp, err := ctrl.Camera().ExposureTime()
	if err != nil {
		t.Fatalf("ExposureTime failed: %v", err)
	}
	if exp != 5*time.Millisecond {
		t.Errorf("exposure: got %v, want 5ms", exp)
	}

	gain, err := ctrl.Camera().Gain()
	if err != nil {
		t.Fatalf("Gain failed: %v", err)
	}
	if gain != 6 {
		t.Errorf("gain: got %v, want 6", gain)
	}
}

func TestController_ApplyValidates(t *testing.T) {
	ctrl, err := Open(context.Background(), mockOpenConfig(), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer ctrl.Close()

	bad := camera.DefaultConfig()
	bad.GainDB = 1000
	if err := ctrl.Apply(bad); err == nil {
		t.Error("expected validation error for absurd gain")
	}

	good := camera.DefaultConfig()
	good.ExposureTimeUs = 2_000
	if err := ctrl.Apply(good); err != nil {
		t.Errorf("Apply failed: %v", err)
	}
}

func TestOpen_AppliesROIBeforeArming(t *testing.T) {
	cfg := mockOpenConfig()
	cfg.Acquisition = camera.DefaultConfig()
	cfg.Acquisition.ROIX = 4
	cfg.Acquisition.ROIY = 4
	cfg.Acquisition.ROIWidth = 16
	cfg.Acquisition.ROIHeight = 8

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ctrl, err := Open(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer ctrl.Close()

	roi, err := ctrl.Camera().ROI()
	if err != nil {
		t.Fatalf("ROI failed: %v", err)
	}
	if roi.Width != 16 || roi.Height != 8 {
		t.Errorf("roi: got %+v, want 16x8", roi)
	}

	f, err := ctrl.Frame(ctx)
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if f.Width != 16 || f.Height != 8 {
		t.Errorf("frame geometry: got %dx%d, want 16x8", f.Width, f.Height)
	}
}

func TestController_RejectsROIChangeWhileStreaming(t *testing.T) {
	ctrl, err := Open(context.Background(), mockOpenConfig(), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer ctrl.Close()

	cfg := camera.DefaultConfig()
	cfg.ROIWidth = 16
	cfg.ROIHeight = 16
	if err := ctrl.Apply(cfg); !errors.Is(err, sdk.ErrCameraArmed) {
		t.Errorf("expected ErrCameraArmed, got %v", err)
	}

	// non-ROI settings still apply while armed
	cfg = camera.DefaultConfig()
	cfg.BlackLevel = 32
	cfg.FrameRateFPS = 30
	if err := ctrl.Apply(cfg); err != nil {
		t.Errorf("Apply failed: %v", err)
	}
	if level, _ := ctrl.Camera().BlackLevel(); level != 32 {
		t.Errorf("black level: got %d, want 32", level)
	}
}

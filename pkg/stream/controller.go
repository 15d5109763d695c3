package stream

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/visikit/thorcam/pkg/camera"
	"github.com/visikit/thorcam/pkg/sdk"
)

// Controller bundles an SDK handle, an open camera, and a running
// Streamer behind one lifecycle. It is the high-level entry point:
//
//	ctrl, err := stream.Open(context.Background(), stream.OpenConfig{}, nil)
//	if err != nil { ... }
//	defer ctrl.Close()
//
//	img, ok := ctrl.TryFrame()
type Controller struct {
	*Streamer

	sdk sdk.SDK
	cam sdk.Camera

	// last ROI pushed to the camera; changing it requires a disarmed
	// camera, so apply only touches it when the value moves
	roi sdk.ROI
}

// OpenConfig configures Open.
type OpenConfig struct {
	// SDK selects and configures the backend. Zero value: auto-detect.
	SDK sdk.Config `yaml:"sdk" json:"sdk"`

	// CameraIndex is the index of the camera to open. Default: 0.
	CameraIndex int `yaml:"camera_index" json:"camera_index"`

	// Stream configures the acquisition loop. Zero value: defaults.
	Stream Config `yaml:"stream" json:"stream"`

	// Acquisition holds the initial camera settings. Zero value: defaults.
	Acquisition camera.Config `yaml:"acquisition" json:"acquisition"`
}

// Open initializes the SDK, opens the indexed camera, applies the
// acquisition settings, and starts streaming. On any failure every
// resource acquired so far is released.
func Open(ctx context.Context, cfg OpenConfig, logger *slog.Logger) (*Controller, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.SDK.Backend == "" {
		cfg.SDK = sdk.DefaultConfig()
	}
	if cfg.Stream == (Config{}) {
		cfg.Stream = DefaultConfig()
	}
	if cfg.Acquisition == (camera.Config{}) {
		cfg.Acquisition = camera.DefaultConfig()
	}
	cfg.Stream.QueueDepth = cfg.Acquisition.QueueDepth
	cfg.Stream.BufferCount = cfg.Acquisition.BufferCount

	handle, err := sdk.New(cfg.SDK, logger)
	if err != nil {
		return nil, err
	}

	cameras, err := handle.Discover()
	if err != nil {
		handle.Close()
		return nil, err
	}
	if len(cameras) == 0 {
		handle.Close()
		return nil, sdk.ErrNoCamerasFound
	}
	if cfg.CameraIndex >= len(cameras) {
		handle.Close()
		return nil, fmt.Errorf("%w: index %d, found %d cameras",
			sdk.ErrCameraIndexOutOfRange, cfg.CameraIndex, len(cameras))
	}

	cam, err := handle.OpenIndex(cfg.CameraIndex)
	if err != nil {
		handle.Close()
		return nil, err
	}

	ctrl := &Controller{sdk: handle, cam: cam}

	if err := ctrl.apply(cfg.Acquisition); err != nil {
		ctrl.Close()
		return nil, err
	}

	streamer, err := NewStreamer(cam, cfg.Stream, logger)
	if err != nil {
		ctrl.Close()
		return nil, err
	}
	streamer.setBackend(handle.Name())
	streamer.SetRateCap(cfg.Acquisition.FrameRateFPS)
	ctrl.Streamer = streamer

	if err := streamer.Start(ctx); err != nil {
		ctrl.Close()
		return nil, err
	}

	logger.Info("camera stream running",
		"backend", handle.Name(),
		"camera", cam.Info().Name,
		"serial", cam.Info().Serial,
	)
	return ctrl, nil
}

// Camera returns the underlying camera handle.
func (c *Controller) Camera() sdk.Camera {
	return c.cam
}

// SDK returns the underlying SDK handle.
func (c *Controller) SDK() sdk.SDK {
	return c.sdk
}

// Apply pushes acquisition settings to the camera.
// Settings that require re-arming (buffer count, queue depth) only take
// effect on the next Start. An ROI change is rejected with
// sdk.ErrCameraArmed while streaming; stop first, then apply.
func (c *Controller) Apply(cfg camera.Config) error {
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("stream: invalid acquisition config: %v", errs)
	}
	return c.apply(cfg)
}

func (c *Controller) apply(cfg camera.Config) error {
	roi := sdk.ROI{X: cfg.ROIX, Y: cfg.ROIY, Width: cfg.ROIWidth, Height: cfg.ROIHeight}
	if roi != c.roi {
		if err := c.cam.SetROI(roi); err != nil {
			return fmt.Errorf("stream: set roi: %w", err)
		}
		c.roi = roi
	}

	exp := time.Duration(cfg.ExposureTimeUs) * time.Microsecond
	if err := c.cam.SetExposureTime(exp); err != nil {
		return fmt.Errorf("stream: set exposure: %w", err)
	}
	if err := c.cam.SetGain(cfg.GainDB); err != nil {
		return fmt.Errorf("stream: set gain: %w", err)
	}
	if err := c.cam.SetBlackLevel(cfg.BlackLevel); err != nil {
		return fmt.Errorf("stream: set black level: %w", err)
	}

	if c.Streamer != nil {
		c.Streamer.SetRateCap(cfg.FrameRateFPS)
	}
	return nil
}

// Close stops streaming and releases the camera and the SDK.
// Safe to call multiple times and on partially constructed controllers.
func (c *Controller) Close() error {
	var firstErr error

	if c.Streamer != nil {
		if err := c.Streamer.Close(); err != nil {
			firstErr = err
		}
	}
	if c.cam != nil {
		if err := c.cam.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.cam = nil
	}
	if c.sdk != nil {
		if err := c.sdk.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.sdk = nil
	}
	return firstErr
}

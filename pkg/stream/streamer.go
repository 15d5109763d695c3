// Package stream implements continuous background frame acquisition.
//
// A Streamer owns an armed camera and polls it from a dedicated
// goroutine so callers never block on the SDK. Frames flow through a
// small drop-oldest queue: a slow consumer always finds a recent frame,
// never a stale backlog.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/visikit/thorcam/pkg/frame"
	"github.com/visikit/thorcam/pkg/process"
	"github.com/visikit/thorcam/pkg/sdk"
)

// Config holds streamer configuration.
type Config struct {
	// QueueDepth is the capacity of the drop-oldest frame queue.
	// Default: 2.
	QueueDepth int `yaml:"queue_depth" json:"queue_depth"`

	// BufferCount is the number of internal SDK frame buffers to arm
	// with. Default: 2.
	BufferCount int `yaml:"buffer_count" json:"buffer_count"`

	// IdleSleep is how long the poll loop sleeps when no frame is
	// pending, to avoid spinning against a non-blocking SDK poll.
	// Default: 1ms.
	IdleSleep time.Duration `yaml:"idle_sleep" json:"idle_sleep"`

	// Passthrough delivers frames as 16-bit grayscale at the native
	// sensor bit depth, skipping rescaling and demosaicing.
	Passthrough bool `yaml:"passthrough" json:"passthrough"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		QueueDepth:  2,
		BufferCount: 2,
		IdleSleep:   time.Millisecond,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.QueueDepth < 1 {
		return fmt.Errorf("stream: queue_depth must be at least 1, got %d", c.QueueDepth)
	}
	if c.BufferCount < 2 {
		return fmt.Errorf("stream: buffer_count must be at least 2, got %d", c.BufferCount)
	}
	if c.IdleSleep < 0 {
		return fmt.Errorf("stream: idle_sleep must not be negative, got %v", c.IdleSleep)
	}
	return nil
}

// Streamer acquires frames from an open camera in the background.
type Streamer struct {
	cam     sdk.Camera
	pipe    *process.Pipeline
	cfg     Config
	logger  *slog.Logger
	backend string

	ring     *Ring
	frames   chan *frame.Frame
	latest   atomic.Pointer[frame.Frame]
	seq      atomic.Uint64
	stats    counters
	rateCap  atomic.Uint64 // Float64bits of the fps cap, 0 = uncapped
	loopDone atomic.Bool

	mu      sync.Mutex
	running bool
	closed  bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	lastErr error
}

// NewStreamer creates a streamer for an open, unarmed camera.
// The camera remains owned by the caller; Close does not close it.
func NewStreamer(cam sdk.Camera, cfg Config, logger *slog.Logger) (*Streamer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	pipe := process.New(cam.Sensor())
	if cfg.Passthrough {
		pipe = process.NewPassthrough(cam.Sensor())
	}

	return &Streamer{
		cam:    cam,
		pipe:   pipe,
		cfg:    cfg,
		logger: logger,
		ring:   NewRing(cfg.QueueDepth),
		frames: make(chan *frame.Frame, cfg.QueueDepth),
	}, nil
}

// SetRateCap caps the delivered frame rate at fps. Zero removes the
// cap. Frames above the cap are discarded before processing.
func (s *Streamer) SetRateCap(fps float64) {
	if fps < 0 {
		fps = 0
	}
	s.rateCap.Store(math.Float64bits(fps))
}

// Start arms the camera, issues a software trigger for unlimited
// acquisition, and launches the poll goroutine.
func (s *Streamer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return sdk.ErrCameraClosed
	}
	if s.running {
		return nil
	}

	if err := s.cam.SetFramesPerTrigger(0); err != nil {
		return fmt.Errorf("stream: set frames per trigger: %w", err)
	}
	if err := s.cam.SetPollTimeout(0); err != nil {
		return fmt.Errorf("stream: set poll timeout: %w", err)
	}
	if err := s.cam.Arm(s.cfg.BufferCount); err != nil {
		return fmt.Errorf("stream: arm: %w", err)
	}
	if err := s.cam.IssueSoftwareTrigger(); err != nil {
		s.cam.Disarm()
		return fmt.Errorf("stream: software trigger: %w", err)
	}

	s.running = true
	s.lastErr = nil
	s.loopDone.Store(false)
	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.pollLoop(ctx, s.stopCh)

	s.logger.Info("acquisition started",
		"camera", s.cam.Info().Serial,
		"queue_depth", s.cfg.QueueDepth,
		"buffers", s.cfg.BufferCount,
	)
	return nil
}

// pollLoop continuously polls the camera until stopped.
func (s *Streamer) pollLoop(ctx context.Context, stopCh chan struct{}) {
	defer s.wg.Done()
	defer s.loopDone.Store(true)

	var lastEmit time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		raw, err := s.cam.PendingFrame()
		if err != nil {
			s.stats.pollErrs.Add(1)
			if sdk.IsClosed(err) {
				return
			}
			s.mu.Lock()
			s.lastErr = err
			s.mu.Unlock()
			s.logger.Error("frame poll failed, stopping acquisition", "error", err)
			return
		}
		if raw == nil {
			if s.cfg.IdleSleep > 0 {
				time.Sleep(s.cfg.IdleSleep)
			}
			continue
		}

		if fps := math.Float64frombits(s.rateCap.Load()); fps > 0 {
			period := time.Duration(float64(time.Second) / fps)
			if time.Since(lastEmit) < period {
				continue
			}
			lastEmit = time.Now()
		}

		f, err := s.pipe.Process(raw, s.seq.Add(1)-1)
		if err != nil {
			s.stats.pollErrs.Add(1)
			s.logger.Warn("frame processing failed", "error", err)
			continue
		}
		s.stats.captured.Add(1)
		s.latest.Store(f)

		if s.ring.Push(f) {
			s.stats.dropped.Add(1)
		}

		// independent tap for channel consumers, drop-new
		select {
		case s.frames <- f:
		default:
		}
	}
}

// TryFrame returns the next queued frame without blocking.
// The second return is false when no frame is available.
func (s *Streamer) TryFrame() (*frame.Frame, bool) {
	f, ok := s.ring.TryPop()
	if ok {
		s.stats.delivered.Add(1)
	}
	return f, ok
}

// Frame blocks until a frame is available or the context is done.
func (s *Streamer) Frame(ctx context.Context) (*frame.Frame, error) {
	for {
		if f, ok := s.ring.TryPop(); ok {
			s.stats.delivered.Add(1)
			return f, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.ring.Wait():
		}
	}
}

// Frames returns a channel that receives frames as they arrive.
// Delivery is best-effort: frames are dropped when the channel is full.
// The channel is independent of TryFrame/Frame.
func (s *Streamer) Frames() <-chan *frame.Frame {
	return s.frames
}

// Latest returns the most recently captured frame, or nil before the
// first frame. The frame is shared; do not modify it.
func (s *Streamer) Latest() *frame.Frame {
	return s.latest.Load()
}

// Err returns the error that stopped the poll loop, if any.
func (s *Streamer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Stats returns a snapshot of stream statistics. Running reflects the
// poll goroutine itself, so a loop killed by context cancellation or a
// poll error reads as stopped before Stop is called.
func (s *Streamer) Stats() Stats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	running = running && !s.loopDone.Load()
	return s.stats.snapshot(running, s.backend)
}

// setBackend records the backend name for Stats.
func (s *Streamer) setBackend(name string) {
	s.backend = name
}

// Stop signals the poll goroutine, waits for it to exit, and disarms
// the camera. It is safe to call Stop multiple times.
func (s *Streamer) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()

	if err := s.cam.Disarm(); err != nil && !sdk.IsClosed(err) {
		return fmt.Errorf("stream: disarm: %w", err)
	}

	s.logger.Info("acquisition stopped",
		"camera", s.cam.Info().Serial,
		"captured", s.stats.captured.Load(),
		"dropped", s.stats.dropped.Load(),
	)
	return nil
}

// Close stops the streamer. After Close it cannot be restarted.
// The camera itself is left open for the owner to close.
func (s *Streamer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.Stop()
}

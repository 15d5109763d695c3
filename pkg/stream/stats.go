package stream

import "sync/atomic"

// Stats contains statistics about a frame stream.
type Stats struct {
	// FramesCaptured is the number of frames received from the camera.
	FramesCaptured uint64 `json:"frames_captured"`

	// FramesDropped is the number of frames evicted from the queue
	// because the consumer fell behind.
	FramesDropped uint64 `json:"frames_dropped"`

	// FramesDelivered is the number of frames handed to a consumer.
	FramesDelivered uint64 `json:"frames_delivered"`

	// PollErrors is the number of failed camera polls.
	PollErrors uint64 `json:"poll_errors"`

	// Running indicates if the acquisition loop is active.
	Running bool `json:"running"`

	// Backend is the name of the SDK backend.
	Backend string `json:"backend"`
}

// counters holds the live atomic counters behind Stats.
type counters struct {
	captured  atomic.Uint64
	dropped   atomic.Uint64
	delivered atomic.Uint64
	pollErrs  atomic.Uint64
}

func (c *counters) snapshot(running bool, backend string) Stats {
	return Stats{
		FramesCaptured:  c.captured.Load(),
		FramesDropped:   c.dropped.Load(),
		FramesDelivered: c.delivered.Load(),
		PollErrors:      c.pollErrs.Load(),
		Running:         running,
		Backend:         backend,
	}
}

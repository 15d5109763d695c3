package stream

import (
	"sync"

	"github.com/visikit/thorcam/pkg/frame"
)

// Ring is a bounded frame queue that discards the oldest frame when a
// new one arrives at capacity. The producer never blocks: latency wins
// over completeness.
type Ring struct {
	mu      sync.Mutex
	buf     []*frame.Frame
	head    int
	count   int
	dropped uint64

	// pulsed on every push so blocked readers can retry
	signal chan struct{}
}

// NewRing creates a ring with the given capacity.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{
		buf:    make([]*frame.Frame, capacity),
		signal: make(chan struct{}, 1),
	}
}

// Push adds a frame, evicting the oldest if the ring is full.
// Returns true if a frame was evicted.
func (r *Ring) Push(f *frame.Frame) bool {
	r.mu.Lock()
	evicted := false
	if r.count == len(r.buf) {
		// overwrite the oldest slot
		r.head = (r.head + 1) % len(r.buf)
		r.count--
		r.dropped++
		evicted = true
	}
	tail := (r.head + r.count) % len(r.buf)
	r.buf[tail] = f
	r.count++
	r.mu.Unlock()

	select {
	case r.signal <- struct{}{}:
	default:
	}
	return evicted
}

// TryPop removes and returns the oldest frame, or (nil, false) if empty.
func (r *Ring) TryPop() (*frame.Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		return nil, false
	}
	f := r.buf[r.head]
	r.buf[r.head] = nil
	r.head = (r.head + 1) % len(r.buf)
	r.count--
	return f, true
}

// Peek returns the oldest frame without removing it.
func (r *Ring) Peek() (*frame.Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		return nil, false
	}
	return r.buf[r.head], true
}

// Len returns the number of buffered frames.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Dropped returns the number of frames evicted so far.
func (r *Ring) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Wait returns a channel that receives a pulse after each push.
// Used by blocking readers; spurious wakeups are possible.
func (r *Ring) Wait() <-chan struct{} {
	return r.signal
}

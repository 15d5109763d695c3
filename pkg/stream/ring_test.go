package stream

import (
	"testing"
	"time"

	"github.com/visikit/thorcam/pkg/frame"
)

func seqFrame(seq uint64) *frame.Frame {
	return &frame.Frame{Seq: seq}
}

func TestRing_PushPopOrder(t *testing.T) {
	r := NewRing(3)

	for i := uint64(0); i < 3; i++ {
		if evicted := r.Push(seqFrame(i)); evicted {
			t.Errorf("push %d: unexpected eviction", i)
		}
	}

	for want := uint64(0); want < 3; want++ {
		f, ok := r.TryPop()
		if !ok {
			t.Fatalf("pop %d: empty ring", want)
		}
		if f.Seq != want {
			t.Errorf("pop: got seq %d, want %d", f.Seq, want)
		}
	}

	if _, ok := r.TryPop(); ok {
		t.Error("expected empty ring")
	}
}

func TestRing_DropsOldestWhenFull(t *testing.T) {
	r := NewRing(2)

	r.Push(seqFrame(0))
	r.Push(seqFrame(1))
	if evicted := r.Push(seqFrame(2)); !evicted {
		t.Error("expected eviction at capacity")
	}

	f, ok := r.TryPop()
	if !ok || f.Seq != 1 {
		t.Errorf("expected oldest surviving frame seq 1, got %v", f)
	}
	f, ok = r.TryPop()
	if !ok || f.Seq != 2 {
		t.Errorf("expected seq 2, got %v", f)
	}

	if r.Dropped() != 1 {
		t.Errorf("dropped: got %d, want 1", r.Dropped())
	}
}

func TestRing_MinimumCapacity(t *testing.T) {
	r := NewRing(0)
	if r.Cap() != 1 {
		t.Errorf("cap: got %d, want 1", r.Cap())
	}

	r.Push(seqFrame(1))
	r.Push(seqFrame(2))
	f, _ := r.TryPop()
	if f.Seq != 2 {
		t.Errorf("expected latest frame, got seq %d", f.Seq)
	}
}

func TestRing_Peek(t *testing.T) {
	r := NewRing(2)

	if _, ok := r.Peek(); ok {
		t.Error("expected empty peek")
	}

	r.Push(seqFrame(7))
	f, ok := r.Peek()
	if !ok || f.Seq != 7 {
		t.Errorf("peek: got %v", f)
	}
	if r.Len() != 1 {
		t.Error("peek must not consume")
	}
}

func TestRing_WaitSignals(t *testing.T) {
	r := NewRing(2)

	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-r.Wait():
		case <-time.After(time.Second):
			t.Error("timed out waiting for push signal")
		}
	}()

	time.Sleep(10 * time.Millisecond)
	r.Push(seqFrame(0))
	<-done
}

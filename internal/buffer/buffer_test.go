package buffer

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kronberger-droid/rusty-tip/internal/telemetry"
)

// fakeSource feeds a fixed sequence of frames then returns an error to
// let the worker exit cleanly for the test.
type fakeSource struct {
	mu     sync.Mutex
	frames []telemetry.Frame
	idx    int
}

func (f *fakeSource) ReadFrame() (telemetry.Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.idx >= len(f.frames) {
		return telemetry.Frame{}, errors.New("fake source exhausted")
	}
	fr := f.frames[f.idx]
	f.idx++
	return fr, nil
}

func frameWith(v float32) telemetry.Frame {
	return telemetry.Frame{ChannelCount: 1, Values: []float32{v}}
}

func TestRecentReturnsFramesWithinWindow(t *testing.T) {
	src := &fakeSource{frames: []telemetry.Frame{frameWith(1), frameWith(2), frameWith(3)}}
	r := New(src, Config{Capacity: 10})
	defer r.Stop()

	deadline := time.Now().Add(time.Second)
	for {
		if r.Stats().Count >= 3 || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	got := r.Recent(time.Hour)
	if len(got) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].At.Before(got[i-1].At) {
			t.Fatalf("frames not monotonic")
		}
	}
}

func TestBetweenFiltersByWindow(t *testing.T) {
	src := &fakeSource{}
	r := New(src, Config{Capacity: 10})
	defer r.Stop()

	t0 := time.Now()
	r.push(TimestampedFrame{At: t0, Frame: frameWith(1)})
	r.push(TimestampedFrame{At: t0.Add(10 * time.Millisecond), Frame: frameWith(2)})
	r.push(TimestampedFrame{At: t0.Add(20 * time.Millisecond), Frame: frameWith(3)})
	r.push(TimestampedFrame{At: t0.Add(30 * time.Millisecond), Frame: frameWith(4)})
	r.push(TimestampedFrame{At: t0.Add(40 * time.Millisecond), Frame: frameWith(5)})

	got := r.Between(t0.Add(10*time.Millisecond), t0.Add(30*time.Millisecond))
	if len(got) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(got))
	}
	if got[0].Frame.Values[0] != 2 || got[2].Frame.Values[0] != 4 {
		t.Fatalf("unexpected window contents: %+v", got)
	}
}

func TestDropOldestEvictionRespectsCapacity(t *testing.T) {
	src := &fakeSource{}
	r := New(src, Config{Capacity: 3})
	defer r.Stop()

	for i := 0; i < 5; i++ {
		r.push(TimestampedFrame{At: time.Now(), Frame: frameWith(float32(i))})
	}

	stats := r.Stats()
	if stats.Count != 3 {
		t.Fatalf("expected ring capped at 3, got %d", stats.Count)
	}
}

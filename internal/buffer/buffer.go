// Package buffer continuously drains a telemetry stream into a bounded,
// timestamped ring so the Action Layer can ask for a time window of
// frames without ever blocking the background reader.
package buffer

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kronberger-droid/rusty-tip/internal/telemetry"
)

// TimestampedFrame pairs a telemetry frame with the monotonic instant
// it was received at.
type TimestampedFrame struct {
	At    time.Time
	Frame telemetry.Frame
}

// frameSource is the minimal interface the Buffered Reader needs from a
// telemetry stream, letting tests substitute a fake producer.
type frameSource interface {
	ReadFrame() (telemetry.Frame, error)
}

// Reader owns a background goroutine draining a frameSource into a
// bounded ring buffer with drop-oldest eviction.
type Reader struct {
	src      frameSource
	capacity int
	log      *slog.Logger

	mu   sync.Mutex
	ring *list.List // of TimestampedFrame, oldest at Front

	stopping atomic.Bool
	done     chan struct{}
	runErr   atomic.Value // error
}

// Config controls ring sizing and logging.
type Config struct {
	Capacity int
	Logger   *slog.Logger
}

// New starts the background worker immediately.
func New(src frameSource, cfg Config) *Reader {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 4096
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	r := &Reader{
		src:      src,
		capacity: cfg.Capacity,
		log:      cfg.Logger,
		ring:     list.New(),
		done:     make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Reader) run() {
	defer close(r.done)
	for !r.stopping.Load() {
		frame, err := r.src.ReadFrame()
		if err != nil {
			r.runErr.Store(err)
			r.log.Error("buffer: telemetry read failed, worker exiting", "err", err)
			return
		}
		r.push(TimestampedFrame{At: time.Now(), Frame: frame})
	}
}

func (r *Reader) push(tf TimestampedFrame) {
	r.mu.Lock()
	r.ring.PushBack(tf)
	if r.ring.Len() > r.capacity {
		r.ring.Remove(r.ring.Front())
	}
	r.mu.Unlock()
}

// Recent returns frames with timestamp >= now - d, oldest first.
func (r *Reader) Recent(d time.Duration) []TimestampedFrame {
	cutoff := time.Now().Add(-d)
	return r.snapshotFilter(func(tf TimestampedFrame) bool { return !tf.At.Before(cutoff) })
}

// Between returns frames with t0 <= timestamp <= t1, oldest first.
func (r *Reader) Between(t0, t1 time.Time) []TimestampedFrame {
	return r.snapshotFilter(func(tf TimestampedFrame) bool {
		return !tf.At.Before(t0) && !tf.At.After(t1)
	})
}

func (r *Reader) snapshotFilter(keep func(TimestampedFrame) bool) []TimestampedFrame {
	r.mu.Lock()
	out := make([]TimestampedFrame, 0, r.ring.Len())
	for e := r.ring.Front(); e != nil; e = e.Next() {
		tf := e.Value.(TimestampedFrame)
		if keep(tf) {
			out = append(out, tf)
		}
	}
	r.mu.Unlock()
	return out
}

// Stats summarizes the ring's current occupancy.
type Stats struct {
	Count     int
	Capacity  int
	OldestAt  time.Time
	NewestAt  time.Time
}

func (r *Reader) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Stats{Count: r.ring.Len(), Capacity: r.capacity}
	if front := r.ring.Front(); front != nil {
		s.OldestAt = front.Value.(TimestampedFrame).At
	}
	if back := r.ring.Back(); back != nil {
		s.NewestAt = back.Value.(TimestampedFrame).At
	}
	return s
}

// Stop signals the worker to exit after its current read, waits for it
// to join, and returns any terminal read error it encountered.
func (r *Reader) Stop() error {
	r.stopping.Store(true)
	<-r.done
	if err, ok := r.runErr.Load().(error); ok {
		return err
	}
	return nil
}

// WaitUntilStopped blocks until the worker has exited or ctx is done.
func (r *Reader) WaitUntilStopped(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package internal

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sys/cpu"
)

// StatsSnapshot is a point-in-time copy of the transfer counters.
type StatsSnapshot struct {
	Timestamp time.Time

	WriteRequests uint64
	BytesWritten  uint64
	BytesDropped  uint64

	ReadRequests uint64
	BytesRead    uint64

	// Buffered is the number of bytes held by the buffer when the snapshot was taken.
	Buffered int
}

// StatsSink receives a snapshot at every stats interval.
type StatsSink interface {
	Push(ctx context.Context, snapshot StatsSnapshot) error
}

// Stats counts the bytes moved through a device.
// The writer side and the reader side live on different cache lines.
type Stats struct {
	l *Logger

	bufferedFn func() int

	writeRequests atomic.Uint64
	bytesWritten  atomic.Uint64
	bytesDropped  atomic.Uint64

	_ cpu.CacheLinePad

	readRequests atomic.Uint64
	bytesRead    atomic.Uint64

	_ cpu.CacheLinePad

	sinks []StatsSink
}

// NewStats returns a [Stats]. bufferedFn reports the current buffer length and may be nil.
func NewStats(l *Logger, bufferedFn func() int) *Stats {
	return &Stats{
		l: l,

		bufferedFn: bufferedFn,
	}
}

// AddSink registers a sink fed by RunStats. It must be called before RunStats.
func (s *Stats) AddSink(sink StatsSink) {
	s.sinks = append(s.sinks, sink)
}

func (s *Stats) RecordWrite(requested, accepted int) {
	s.writeRequests.Add(1)
	s.bytesWritten.Add(uint64(accepted))

	if dropped := requested - accepted; dropped > 0 {
		s.bytesDropped.Add(uint64(dropped))
	}
}

func (s *Stats) RecordRead(n int) {
	s.readRequests.Add(1)
	s.bytesRead.Add(uint64(n))
}

func (s *Stats) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		Timestamp: time.Now(),

		WriteRequests: s.writeRequests.Load(),
		BytesWritten:  s.bytesWritten.Load(),
		BytesDropped:  s.bytesDropped.Load(),

		ReadRequests: s.readRequests.Load(),
		BytesRead:    s.bytesRead.Load(),
	}

	if s.bufferedFn != nil {
		snap.Buffered = s.bufferedFn()
	}

	return snap
}

// RunStats logs the per-interval traffic and pushes a snapshot to the sinks
// until ctx is done. Idle intervals are skipped.
// A non-positive interval disables the reports and returns immediately.
func (s *Stats) RunStats(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		s.l.Warn("stats disabled", "interval", interval)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := s.Snapshot()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			curr := s.Snapshot()

			if curr.WriteRequests == prev.WriteRequests && curr.ReadRequests == prev.ReadRequests {
				continue
			}

			s.l.Info("stats",
				"written_bytes", curr.BytesWritten-prev.BytesWritten,
				"dropped_bytes", curr.BytesDropped-prev.BytesDropped,
				"read_bytes", curr.BytesRead-prev.BytesRead,
				"buffered", curr.Buffered,
			)

			for _, sink := range s.sinks {
				if err := sink.Push(ctx, curr); err != nil {
					s.l.Error("failed to push stats", err)
				}
			}

			prev = curr
		}
	}
}

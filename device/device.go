package device

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/squadracorsepolito/cdd/internal"
	"github.com/squadracorsepolito/cdd/internal/rb"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrClosed is returned when operating on a closed session or on a device that has been shut down.
var ErrClosed = errors.New("device: closed")

// Device is a byte device backed by a single ring buffer.
// Every session opened on the device shares the same buffer.
type Device struct {
	tel *internal.Telemetry

	name string

	buf      *rb.RingBuffer
	transfer *Transfer

	stats *internal.Stats

	isShutdown    atomic.Bool
	lastSessionID atomic.Uint64
	openCount     atomic.Int64

	// Telemetry metrics
	writtenBytes metric.Int64Counter
	droppedBytes metric.Int64Counter
	readBytes    metric.Int64Counter
	openSessions metric.Int64UpDownCounter
}

// New returns a [Device] owning a fresh buffer of cfg.Capacity bytes.
func New(cfg *Config) (*Device, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return NewWithBuffer(cfg.Name, rb.NewRingBuffer(cfg.Capacity)), nil
}

// NewWithBuffer returns a [Device] named name on top of buf.
func NewWithBuffer(name string, buf *rb.RingBuffer) *Device {
	tel := internal.NewTelemetry("device", name)

	d := &Device{
		tel: tel,

		name: name,

		buf:      buf,
		transfer: NewTransfer(buf),
	}

	d.stats = internal.NewStats(tel.Logger(), buf.Len)

	d.initMetrics()

	tel.LogInfo("initialized", "capacity", buf.Cap())

	return d
}

func (d *Device) initMetrics() {
	d.writtenBytes = d.tel.NewCounter("written_bytes")
	d.droppedBytes = d.tel.NewCounter("dropped_bytes")
	d.readBytes = d.tel.NewCounter("read_bytes")
	d.openSessions = d.tel.NewUpDownCounter("open_sessions")

	d.tel.NewGauge("buffered_bytes", func() int64 { return int64(d.buf.Len()) })
}

func (d *Device) Name() string {
	return d.name
}

// Capacity returns the size of the device buffer.
func (d *Device) Capacity() int {
	return d.buf.Cap()
}

// Buffered returns the number of bytes waiting to be read.
func (d *Device) Buffered() int {
	return d.buf.Len()
}

// OpenCount returns the number of sessions currently open.
func (d *Device) OpenCount() int64 {
	return d.openCount.Load()
}

func (d *Device) Stats() *internal.Stats {
	return d.stats
}

// RunStats periodically logs the device traffic until ctx is done.
func (d *Device) RunStats(ctx context.Context, interval time.Duration) {
	d.stats.RunStats(ctx, interval)
}

// Open starts a new session on the device. It does not touch the buffer.
func (d *Device) Open(ctx context.Context) (*Session, error) {
	if d.isShutdown.Load() {
		return nil, ErrClosed
	}

	id := d.lastSessionID.Add(1)
	openCount := d.openCount.Add(1)
	d.openSessions.Add(ctx, 1)

	d.tel.LogInfo("opened", "session_id", id, "open_count", openCount)

	return newSession(id, d), nil
}

func (d *Device) release(ctx context.Context, id uint64) {
	openCount := d.openCount.Add(-1)
	d.openSessions.Add(ctx, -1)

	d.tel.LogInfo("closed", "session_id", id, "open_count", openCount)
}

func (d *Device) read(ctx context.Context, sessionID uint64, maxLength int) []byte {
	_, span := d.tel.NewTrace(ctx, "read request")
	defer span.End()

	payload := d.transfer.Read(maxLength)
	n := len(payload)

	span.SetAttributes(
		attribute.Int("requested_length", maxLength),
		attribute.Int("returned_length", n),
	)

	d.stats.RecordRead(n)
	d.readBytes.Add(ctx, int64(n))

	d.tel.LogDebug("sent characters to the user", "session_id", sessionID, "count", n)

	return payload
}

func (d *Device) write(ctx context.Context, sessionID uint64, p []byte) int {
	_, span := d.tel.NewTrace(ctx, "write request")
	defer span.End()

	accepted := d.transfer.Write(p)
	dropped := len(p) - accepted

	span.SetAttributes(
		attribute.Int("requested_length", len(p)),
		attribute.Int("accepted_length", accepted),
	)

	d.stats.RecordWrite(len(p), accepted)
	d.writtenBytes.Add(ctx, int64(accepted))

	if dropped > 0 {
		d.droppedBytes.Add(ctx, int64(dropped))
		d.tel.LogDebug("received characters from the user", "session_id", sessionID, "count", accepted, "dropped", dropped)
	} else {
		d.tel.LogDebug("received characters from the user", "session_id", sessionID, "count", accepted)
	}

	return accepted
}

// Shutdown rejects new sessions and operations on the open ones,
// then discards the buffered bytes.
func (d *Device) Shutdown() {
	if !d.isShutdown.CompareAndSwap(false, true) {
		return
	}

	discarded := d.buf.Reset()

	d.tel.LogInfo("shut down", "discarded_bytes", discarded)
}

package device

import "github.com/squadracorsepolito/cdd/internal/rb"

// Transfer moves variable-length requests in and out of a ring buffer.
// It never blocks and never fails: a full buffer shortens a write,
// an empty buffer shortens a read.
type Transfer struct {
	buf *rb.RingBuffer
}

func NewTransfer(buf *rb.RingBuffer) *Transfer {
	return &Transfer{buf: buf}
}

// Write enqueues the bytes of p in order and returns how many were accepted.
// Bytes that do not fit are discarded.
func (t *Transfer) Write(p []byte) int {
	return t.buf.EnqueueSlice(p)
}

// Read dequeues up to maxLength bytes, oldest first.
// The result is shorter than maxLength when the buffer runs out.
func (t *Transfer) Read(maxLength int) []byte {
	if maxLength <= 0 {
		return []byte{}
	}

	dst := make([]byte, min(maxLength, t.buf.Cap()))
	n := t.buf.DequeueInto(dst)

	return dst[:n]
}

// ReadInto dequeues up to len(dst) bytes into dst and returns the count.
func (t *Transfer) ReadInto(dst []byte) int {
	return t.buf.DequeueInto(dst)
}

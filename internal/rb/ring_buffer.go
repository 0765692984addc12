package rb

import "sync"

// DefaultCapacity is the capacity of the device buffer when none is configured.
const DefaultCapacity = 2000

// RingBuffer is a fixed-capacity FIFO queue of bytes.
//
// When the buffer is full, new bytes are rejected instead of evicting
// the oldest ones. All methods are safe for concurrent use:
// a single mutex guards the indexes, the count and the storage.
type RingBuffer struct {
	mux sync.Mutex

	// head is the index of the next byte to dequeue.
	head int
	// tail is the index of the last enqueued byte.
	tail int
	// count is the number of valid bytes starting at head.
	count int

	capacity int
	buffer   []byte
}

// NewRingBuffer returns an empty [RingBuffer] able to hold capacity bytes.
// It panics if capacity is less than 1.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		panic("ring buffer: capacity must be at least 1")
	}

	return &RingBuffer{
		// No last slot yet, the first enqueue wraps the tail to 0
		tail: capacity - 1,

		capacity: capacity,
		buffer:   make([]byte, capacity),
	}
}

func (rb *RingBuffer) isEmpty() bool {
	return rb.count == 0
}

func (rb *RingBuffer) isFull() bool {
	return rb.count == rb.capacity
}

func (rb *RingBuffer) push(b byte) bool {
	if rb.isFull() {
		return false
	}

	rb.tail++
	if rb.tail == rb.capacity {
		rb.tail = 0
	}

	rb.buffer[rb.tail] = b
	rb.count++

	return true
}

func (rb *RingBuffer) pop() (byte, bool) {
	if rb.isEmpty() {
		return 0, false
	}

	b := rb.buffer[rb.head]

	rb.head++
	if rb.head == rb.capacity {
		rb.head = 0
	}

	rb.count--

	return b, true
}

// IsEmpty reports whether the buffer holds no bytes.
func (rb *RingBuffer) IsEmpty() bool {
	rb.mux.Lock()
	defer rb.mux.Unlock()

	return rb.isEmpty()
}

// IsFull reports whether the buffer holds capacity bytes.
func (rb *RingBuffer) IsFull() bool {
	rb.mux.Lock()
	defer rb.mux.Unlock()

	return rb.isFull()
}

// Enqueue appends b to the buffer.
// It returns false and leaves the buffer untouched if the buffer is full.
func (rb *RingBuffer) Enqueue(b byte) bool {
	rb.mux.Lock()
	defer rb.mux.Unlock()

	return rb.push(b)
}

// Dequeue removes and returns the oldest byte.
// The boolean is false if the buffer is empty.
func (rb *RingBuffer) Dequeue() (byte, bool) {
	rb.mux.Lock()
	defer rb.mux.Unlock()

	return rb.pop()
}

// EnqueueSlice enqueues the bytes of p in order until the buffer is full.
// It returns the number of bytes accepted. The remaining bytes are dropped.
func (rb *RingBuffer) EnqueueSlice(p []byte) int {
	rb.mux.Lock()
	defer rb.mux.Unlock()

	accepted := 0
	for _, b := range p {
		if !rb.push(b) {
			break
		}
		accepted++
	}

	return accepted
}

// DequeueInto fills dst with the oldest bytes until dst is full
// or the buffer is empty. It returns the number of bytes copied.
func (rb *RingBuffer) DequeueInto(dst []byte) int {
	rb.mux.Lock()
	defer rb.mux.Unlock()

	n := 0
	for n < len(dst) {
		b, ok := rb.pop()
		if !ok {
			break
		}

		dst[n] = b
		n++
	}

	return n
}

// Reset discards every byte held and returns the buffer to its initial state.
// It returns the number of discarded bytes.
func (rb *RingBuffer) Reset() int {
	rb.mux.Lock()
	defer rb.mux.Unlock()

	discarded := rb.count

	rb.head = 0
	rb.tail = rb.capacity - 1
	rb.count = 0

	return discarded
}

// Len returns the number of bytes currently held.
func (rb *RingBuffer) Len() int {
	rb.mux.Lock()
	defer rb.mux.Unlock()

	return rb.count
}

// Cap returns the capacity of the buffer.
func (rb *RingBuffer) Cap() int {
	return rb.capacity
}

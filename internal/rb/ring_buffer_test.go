package rb

import (
	"math/rand/v2"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_RingBuffer_Scenario(t *testing.T) {
	assert := assert.New(t)

	rb := NewRingBuffer(4)
	assert.True(rb.IsEmpty())

	for _, b := range []byte("abc") {
		assert.True(rb.Enqueue(b))
	}
	assert.Equal(3, rb.Len())

	assert.True(rb.Enqueue('d'))
	assert.Equal(4, rb.Len())
	assert.True(rb.IsFull())

	assert.False(rb.Enqueue('e'))
	assert.Equal(4, rb.Len())

	for _, expected := range []byte("abcd") {
		b, ok := rb.Dequeue()
		assert.True(ok)
		assert.Equal(expected, b)
	}

	assert.Equal(0, rb.Len())
	assert.True(rb.IsEmpty())
}

func Test_RingBuffer_CapacityBoundary(t *testing.T) {
	assert := assert.New(t)

	capacity := DefaultCapacity
	rb := NewRingBuffer(capacity)

	for i := range capacity {
		assert.True(rb.Enqueue(byte(i)), "enqueue %d", i)
	}

	assert.False(rb.Enqueue(0xff))
	assert.Equal(capacity, rb.Len())
	assert.True(rb.IsFull())
}

func Test_RingBuffer_DequeueEmpty(t *testing.T) {
	assert := assert.New(t)

	rb := NewRingBuffer(3)

	b, ok := rb.Dequeue()
	assert.False(ok)
	assert.Zero(b)
	assert.Equal(0, rb.Len())

	// Still consistent after draining a used buffer
	rb.Enqueue('x')
	_, ok = rb.Dequeue()
	assert.True(ok)

	_, ok = rb.Dequeue()
	assert.False(ok)
	assert.Equal(0, rb.Len())
	assert.True(rb.IsEmpty())
}

func Test_RingBuffer_QueriesHaveNoSideEffects(t *testing.T) {
	assert := assert.New(t)

	rb := NewRingBuffer(2)
	rb.Enqueue('a')

	for range 10 {
		assert.False(rb.IsEmpty())
		assert.False(rb.IsFull())
	}
	assert.Equal(1, rb.Len())

	b, ok := rb.Dequeue()
	assert.True(ok)
	assert.Equal(byte('a'), b)
}

func Test_RingBuffer_Wraparound(t *testing.T) {
	// Capacities that do and do not divide the step sizes
	for _, capacity := range []int{1, 3, 7, 10, 2000} {
		t.Run(strconv.Itoa(capacity), func(t *testing.T) {
			assert := assert.New(t)

			rb := NewRingBuffer(capacity)

			var expected []byte
			next := byte(0)
			produced := 0

			// Cross the physical end of the storage several times
			for produced < capacity*3+5 {
				toWrite := capacity/2 + 1
				for range toWrite {
					if rb.Enqueue(next) {
						expected = append(expected, next)
						next++
						produced++
					}
				}

				toRead := capacity/3 + 1
				for range toRead {
					b, ok := rb.Dequeue()
					if !ok {
						break
					}
					assert.Equal(expected[0], b)
					expected = expected[1:]
				}

				assert.Equal(len(expected), rb.Len())
			}

			for len(expected) > 0 {
				b, ok := rb.Dequeue()
				assert.True(ok)
				assert.Equal(expected[0], b)
				expected = expected[1:]
			}

			assert.True(rb.IsEmpty())
		})
	}
}

func Test_RingBuffer_RandomOperations(t *testing.T) {
	assert := assert.New(t)

	capacity := 13
	rb := NewRingBuffer(capacity)
	rnd := rand.New(rand.NewPCG(1, 2))

	model := make([]byte, 0, capacity)
	for range 10_000 {
		if rnd.IntN(2) == 0 {
			b := byte(rnd.IntN(256))
			ok := rb.Enqueue(b)
			assert.Equal(len(model) < capacity, ok)
			if ok {
				model = append(model, b)
			}
		} else {
			b, ok := rb.Dequeue()
			assert.Equal(len(model) > 0, ok)
			if ok {
				assert.Equal(model[0], b)
				model = model[1:]
			}
		}

		count := rb.Len()
		assert.GreaterOrEqual(count, 0)
		assert.LessOrEqual(count, capacity)
		assert.Equal(len(model), count)
		assert.Equal(count == 0, rb.IsEmpty())
		assert.Equal(count == capacity, rb.IsFull())
	}
}

func Test_RingBuffer_Slices(t *testing.T) {
	assert := assert.New(t)

	rb := NewRingBuffer(5)

	assert.Equal(5, rb.EnqueueSlice([]byte("hello world")))
	assert.True(rb.IsFull())
	assert.Equal(0, rb.EnqueueSlice([]byte("!")))

	dst := make([]byte, 3)
	assert.Equal(3, rb.DequeueInto(dst))
	assert.Equal([]byte("hel"), dst)

	assert.Equal(2, rb.EnqueueSlice([]byte("xyz")))

	dst = make([]byte, 10)
	n := rb.DequeueInto(dst)
	assert.Equal(4, n)
	assert.Equal([]byte("loxy"), dst[:n])

	assert.Equal(0, rb.DequeueInto(dst))
	assert.Equal(0, rb.DequeueInto(nil))
}

func Test_RingBuffer_Reset(t *testing.T) {
	assert := assert.New(t)

	rb := NewRingBuffer(4)
	rb.EnqueueSlice([]byte("abc"))
	rb.Dequeue()

	assert.Equal(2, rb.Reset())
	assert.True(rb.IsEmpty())
	assert.Equal(0, rb.Len())

	// Back to the initial state, the next byte lands at the start of the storage
	assert.Equal(4, rb.EnqueueSlice([]byte("wxyz")))
	assert.True(rb.IsFull())

	dst := make([]byte, 4)
	assert.Equal(4, rb.DequeueInto(dst))
	assert.Equal([]byte("wxyz"), dst)

	assert.Equal(0, rb.Reset())
}

func Test_RingBuffer_InvalidCapacity(t *testing.T) {
	assert.Panics(t, func() { NewRingBuffer(0) })
	assert.Panics(t, func() { NewRingBuffer(-1) })
}

func Test_RingBuffer_SingleProducerSingleConsumer(t *testing.T) {
	require := require.New(t)

	const itemsCount = 200_000

	rb := NewRingBuffer(128)

	wg := &sync.WaitGroup{}
	wg.Add(2)

	go func() {
		defer wg.Done()

		for i := 0; i < itemsCount; {
			if rb.Enqueue(byte(i)) {
				i++
			}
		}
	}()

	received := make([]byte, 0, itemsCount)
	go func() {
		defer wg.Done()

		for len(received) < itemsCount {
			if b, ok := rb.Dequeue(); ok {
				received = append(received, b)
			}
		}
	}()

	wg.Wait()

	require.Len(received, itemsCount)
	for i, b := range received {
		require.Equal(byte(i), b, "item %d", i)
	}
	require.True(rb.IsEmpty())
}

func Benchmark_RingBuffer(b *testing.B) {
	b.ReportAllocs()

	capacities := []int{512, 2000, 4096}
	for _, capacity := range capacities {
		capacityStr := strconv.Itoa(capacity)

		b.Run("EnqueueDequeue-"+capacityStr, func(b *testing.B) {
			rb := NewRingBuffer(capacity)

			val := byte(0)
			for b.Loop() {
				rb.Enqueue(val)
				rb.Dequeue()
				val++
			}
		})

		b.Run("SliceCycle-"+capacityStr, func(b *testing.B) {
			rb := NewRingBuffer(capacity)
			src := make([]byte, capacity)
			dst := make([]byte, capacity)

			for b.Loop() {
				rb.EnqueueSlice(src)
				rb.DequeueInto(dst)
			}
		})
	}
}

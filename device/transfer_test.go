package device

import (
	"testing"

	"github.com/squadracorsepolito/cdd/internal/rb"
	"github.com/stretchr/testify/assert"
)

func Test_Transfer_ShortRead(t *testing.T) {
	assert := assert.New(t)

	tr := NewTransfer(rb.NewRingBuffer(rb.DefaultCapacity))

	data := []byte("abcdefghijklmnopqrst")
	assert.Len(data, 20)
	assert.Equal(20, tr.Write(data))

	assert.Equal([]byte("abcde"), tr.Read(5))

	rest := tr.Read(100)
	assert.Len(rest, 15)
	assert.Equal(data[5:], rest)

	assert.Empty(tr.Read(100))
}

func Test_Transfer_ShortWrite(t *testing.T) {
	assert := assert.New(t)

	buf := rb.NewRingBuffer(8)
	tr := NewTransfer(buf)

	assert.Equal(5, tr.Write([]byte("hello")))
	assert.Equal(3, tr.Write([]byte("world")))
	assert.True(buf.IsFull())
	assert.Equal(0, tr.Write([]byte("!")))

	assert.Equal([]byte("hellowor"), tr.Read(64))
	assert.True(buf.IsEmpty())
}

func Test_Transfer_FIFOAcrossWrites(t *testing.T) {
	assert := assert.New(t)

	tr := NewTransfer(rb.NewRingBuffer(10))

	writes := [][]byte{[]byte("one"), []byte("two"), []byte("three"), []byte("four")}

	var expected []byte
	for _, w := range writes {
		accepted := tr.Write(w)
		expected = append(expected, w[:accepted]...)
	}
	assert.Equal([]byte("onetwothre"), expected)

	var got []byte
	for {
		chunk := tr.Read(3)
		if len(chunk) == 0 {
			break
		}
		assert.LessOrEqual(len(chunk), 3)
		got = append(got, chunk...)
	}

	assert.Equal(expected, got)
}

func Test_Transfer_Wraparound(t *testing.T) {
	assert := assert.New(t)

	tr := NewTransfer(rb.NewRingBuffer(7))

	var expected, got []byte
	next := byte(0)
	for range 20 {
		chunk := make([]byte, 5)
		for i := range chunk {
			chunk[i] = next
			next++
		}

		accepted := tr.Write(chunk)
		expected = append(expected, chunk[:accepted]...)

		got = append(got, tr.Read(4)...)
	}
	got = append(got, tr.Read(100)...)

	assert.Equal(expected, got)
}

func Test_Transfer_ReadEdgeCases(t *testing.T) {
	assert := assert.New(t)

	tr := NewTransfer(rb.NewRingBuffer(4))
	tr.Write([]byte("ab"))

	assert.NotNil(tr.Read(0))
	assert.Empty(tr.Read(0))
	assert.Empty(tr.Read(-3))
	assert.Equal(0, tr.Write(nil))

	dst := make([]byte, 4)
	n := tr.ReadInto(dst)
	assert.Equal(2, n)
	assert.Equal([]byte("ab"), dst[:n])
}

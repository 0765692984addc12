package device

import (
	"context"
	"sync/atomic"
)

// Session is a client handle on a [Device].
// Opening and closing a session has no effect on the device buffer.
type Session struct {
	id  uint64
	dev *Device

	isClosed atomic.Bool
}

func newSession(id uint64, dev *Device) *Session {
	return &Session{
		id:  id,
		dev: dev,
	}
}

func (s *Session) ID() uint64 {
	return s.id
}

func (s *Session) checkOpen() error {
	if s.isClosed.Load() || s.dev.isShutdown.Load() {
		return ErrClosed
	}
	return nil
}

// Read returns up to maxLength bytes from the device, oldest first.
// An empty result means no data is available right now and is not an error.
func (s *Session) Read(ctx context.Context, maxLength int) ([]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	return s.dev.read(ctx, s.id, maxLength), nil
}

// Write stores p into the device and returns the number of accepted bytes.
// A count lower than len(p) means the buffer filled up and is not an error.
func (s *Session) Write(ctx context.Context, p []byte) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	return s.dev.write(ctx, s.id, p), nil
}

// Close ends the session. Calling Close more than once is a no-op.
func (s *Session) Close(ctx context.Context) error {
	if !s.isClosed.CompareAndSwap(false, true) {
		return nil
	}

	s.dev.release(ctx, s.id)

	return nil
}

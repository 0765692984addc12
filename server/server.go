package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/squadracorsepolito/cdd/device"
	"github.com/squadracorsepolito/cdd/internal"
	"github.com/squadracorsepolito/cdd/wire"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Server exposes a [device.Device] on a stream socket.
// Every accepted connection is served as a device session.
type Server struct {
	tel *internal.Telemetry

	cfg *Config
	dev *device.Device

	ln net.Listener

	connWg    *sync.WaitGroup
	mux       *sync.Mutex
	conns     map[net.Conn]struct{}
	isClosing bool

	stopCh   chan struct{}
	stopOnce *sync.Once

	// Telemetry metrics
	acceptedConns metric.Int64Counter
	failedReqs    metric.Int64Counter
}

func NewServer(dev *device.Device, cfg *Config) *Server {
	tel := internal.NewTelemetry("server", dev.Name())

	return &Server{
		tel: tel,

		cfg: cfg,
		dev: dev,

		connWg: &sync.WaitGroup{},
		mux:    &sync.Mutex{},
		conns:  make(map[net.Conn]struct{}),

		stopCh:   make(chan struct{}),
		stopOnce: &sync.Once{},

		acceptedConns: tel.NewCounter("accepted_connections"),
		failedReqs:    tel.NewCounter("failed_requests"),
	}
}

// Init starts listening on the configured address.
// A stale unix socket file left by a previous run is removed.
func (s *Server) Init(_ context.Context) error {
	if err := s.cfg.validate(); err != nil {
		return err
	}

	if s.cfg.Network == "unix" {
		if err := os.Remove(s.cfg.Address); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	ln, err := net.Listen(s.cfg.Network, s.cfg.Address)
	if err != nil {
		return err
	}
	s.ln = ln

	s.tel.LogInfo("initialized", "network", s.cfg.Network, "address", ln.Addr().String())

	return nil
}

// Addr returns the listening address. It is valid after Init.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Run accepts connections until ctx is done or Stop is called.
func (s *Server) Run(ctx context.Context) {
	s.tel.LogInfo("running")
	defer s.tel.LogInfo("stopped")

	// Close the listener when the context is done to unblock Accept
	go func() {
		select {
		case <-ctx.Done():
			s.ln.Close()
		case <-s.stopCh:
		}
	}()

	var retryDelay time.Duration
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}

			retryDelay = nextAcceptDelay(retryDelay)
			s.tel.LogError("failed to accept connection", err, "retry_in", retryDelay)

			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-time.After(retryDelay):
			}

			continue
		}
		retryDelay = 0

		s.acceptedConns.Add(ctx, 1)

		if !s.trackConn(conn) {
			conn.Close()
			return
		}

		go s.serveConn(ctx, conn)
	}
}

// Stop closes the listener and every open connection,
// then waits for the connection handlers to return.
func (s *Server) Stop() {
	s.tel.LogInfo("closing")

	s.stopOnce.Do(func() { close(s.stopCh) })

	if s.ln != nil {
		s.ln.Close()
	}

	s.mux.Lock()
	s.isClosing = true
	for conn := range s.conns {
		conn.Close()
	}
	s.mux.Unlock()

	s.connWg.Wait()
}

// nextAcceptDelay doubles the previous delay, starting at 5ms and capped at 1s.
func nextAcceptDelay(prev time.Duration) time.Duration {
	const (
		minDelay = 5 * time.Millisecond
		maxDelay = time.Second
	)

	if prev == 0 {
		return minDelay
	}

	return min(2*prev, maxDelay)
}

func (s *Server) trackConn(conn net.Conn) bool {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.isClosing {
		return false
	}

	s.conns[conn] = struct{}{}
	s.connWg.Add(1)

	return true
}

func (s *Server) untrackConn(conn net.Conn) {
	s.mux.Lock()
	delete(s.conns, conn)
	s.mux.Unlock()
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer s.connWg.Done()
	defer s.untrackConn(conn)
	defer conn.Close()

	sess, err := s.dev.Open(ctx)
	if err != nil {
		s.tel.LogWarn("failed to open session", "reason", err)
		s.writeError(conn, err)
		return
	}
	defer sess.Close(ctx)

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	for {
		req, err := wire.ReadRequest(r, s.cfg.MaxFrameSize)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return
			}

			s.failedReqs.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "decode")))
			s.tel.LogWarn("failed to decode request", "session_id", sess.ID(), "reason", err)
			s.writeError(w, err)

			if flushErr := w.Flush(); flushErr != nil {
				return
			}

			// The oversized payload has been skipped, the stream is still in sync
			if errors.Is(err, wire.ErrFrameTooLarge) {
				continue
			}

			return
		}

		resp, err := s.handleRequest(ctx, sess, req)
		if err != nil {
			s.failedReqs.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "session")))
			s.writeError(w, err)
			w.Flush()
			return
		}

		if err := wire.WriteResponse(w, resp); err != nil {
			s.tel.LogError("failed to write response", err, "session_id", sess.ID())
			return
		}

		if err := w.Flush(); err != nil {
			s.tel.LogError("failed to flush response", err, "session_id", sess.ID())
			return
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, sess *device.Session, req *wire.Request) (*wire.Response, error) {
	switch req.Op {
	case wire.OpRead:
		maxLength := min(int64(req.Length), int64(s.cfg.MaxFrameSize))

		payload, err := sess.Read(ctx, int(maxLength))
		if err != nil {
			return nil, err
		}

		return &wire.Response{Count: uint32(len(payload)), Payload: payload}, nil

	case wire.OpWrite:
		accepted, err := sess.Write(ctx, req.Payload)
		if err != nil {
			return nil, err
		}

		return &wire.Response{Count: uint32(accepted)}, nil

	default:
		return nil, wire.ErrUnknownOp
	}
}

func (s *Server) writeError(w io.Writer, err error) {
	if writeErr := wire.WriteResponse(w, wire.NewErrorResponse(err)); writeErr != nil {
		s.tel.LogWarn("failed to write error response", "reason", writeErr)
	}
}

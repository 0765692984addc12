package client

import (
	"bufio"
	"context"
	"net"
	"sync"

	"github.com/squadracorsepolito/cdd/wire"
)

// Client is a session on a remote device.
// Requests are serialized, so a Client may be shared between goroutines.
type Client struct {
	conn net.Conn

	mux *sync.Mutex
	r   *bufio.Reader
	w   *bufio.Writer

	maxFrameSize int
}

// Dial connects to the device server listening on address.
func Dial(ctx context.Context, network, address string) (*Client, error) {
	dialer := &net.Dialer{}

	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}

	return &Client{
		conn: conn,

		mux: &sync.Mutex{},
		r:   bufio.NewReader(conn),
		w:   bufio.NewWriter(conn),

		maxFrameSize: wire.DefaultMaxFrameSize,
	}, nil
}

// SetMaxFrameSize changes the largest response payload the client accepts.
func (c *Client) SetMaxFrameSize(size int) {
	c.maxFrameSize = size
}

func (c *Client) roundTrip(req *wire.Request) (*wire.Response, error) {
	c.mux.Lock()
	defer c.mux.Unlock()

	if err := wire.WriteRequest(c.w, req); err != nil {
		return nil, err
	}

	if err := c.w.Flush(); err != nil {
		return nil, err
	}

	resp, err := wire.ReadResponse(c.r, c.maxFrameSize)
	if err != nil {
		return nil, err
	}

	if err := resp.Err(); err != nil {
		return nil, err
	}

	return resp, nil
}

// Read asks the device for up to n bytes. The result may be shorter, or empty
// if the device holds no data. n is capped to the max frame size of the client,
// so the server never dequeues more than the client accepts.
func (c *Client) Read(n int) ([]byte, error) {
	n = max(min(n, c.maxFrameSize), 0)

	resp, err := c.roundTrip(wire.NewReadRequest(uint32(n)))
	if err != nil {
		return nil, err
	}

	if resp.Payload == nil {
		return []byte{}, nil
	}

	return resp.Payload, nil
}

// Write sends p to the device and returns the number of bytes it accepted.
func (c *Client) Write(p []byte) (int, error) {
	resp, err := c.roundTrip(wire.NewWriteRequest(p))
	if err != nil {
		return 0, err
	}

	return int(resp.Count), nil
}

// Close ends the session.
func (c *Client) Close() error {
	return c.conn.Close()
}

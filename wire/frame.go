// Package wire implements the binary framing spoken between
// the device server and its clients.
//
// A request is an op byte followed by a big endian uint32 length.
// Write requests are followed by length bytes of payload, while for read
// requests the length is the number of bytes the client asks for.
//
// A response is a status byte, a big endian uint32 count, a big endian
// uint32 payload length and the payload. The count is the number of accepted
// bytes for a write and the number of returned bytes for a read.
// Error responses carry the error message as payload.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	requestHeaderSize  = 5
	responseHeaderSize = 9

	// DefaultMaxFrameSize is the default limit of a frame payload.
	DefaultMaxFrameSize = 64 * 1024
)

var (
	ErrUnknownOp     = errors.New("wire: unknown op")
	ErrUnknownStatus = errors.New("wire: unknown status")
	ErrFrameTooLarge = errors.New("wire: frame too large")
	ErrRemote        = errors.New("wire: remote error")
)

type Op uint8

const (
	OpRead Op = iota + 1
	OpWrite
)

func (op Op) String() string {
	switch op {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	default:
		return "unknown"
	}
}

type Status uint8

const (
	StatusOK Status = iota
	StatusError
)

type Request struct {
	Op Op

	// Length is the requested length of a read.
	// It is ignored for writes, where the payload length is used.
	Length uint32

	Payload []byte
}

func NewReadRequest(length uint32) *Request {
	return &Request{Op: OpRead, Length: length}
}

func NewWriteRequest(payload []byte) *Request {
	return &Request{Op: OpWrite, Length: uint32(len(payload)), Payload: payload}
}

type Response struct {
	Status Status
	Count  uint32

	Payload []byte
}

func NewErrorResponse(err error) *Response {
	return &Response{Status: StatusError, Payload: []byte(err.Error())}
}

// Err returns the remote error carried by an error response, nil otherwise.
func (r *Response) Err() error {
	if r.Status != StatusError {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrRemote, r.Payload)
}

func WriteRequest(w io.Writer, req *Request) error {
	length := req.Length

	switch req.Op {
	case OpRead:
	case OpWrite:
		length = uint32(len(req.Payload))
	default:
		return ErrUnknownOp
	}

	var hdr [requestHeaderSize]byte
	hdr[0] = byte(req.Op)
	binary.BigEndian.PutUint32(hdr[1:5], length)

	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	if req.Op == OpWrite && len(req.Payload) > 0 {
		if _, err := w.Write(req.Payload); err != nil {
			return err
		}
	}

	return nil
}

// ReadRequest decodes a request from r. A write payload longer than
// maxFrameSize is discarded and [ErrFrameTooLarge] is returned, so that
// the next request can still be decoded.
// It returns [io.EOF] if r is closed before the first header byte.
func ReadRequest(r io.Reader, maxFrameSize int) (*Request, error) {
	var hdr [requestHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}

	req := &Request{
		Op:     Op(hdr[0]),
		Length: binary.BigEndian.Uint32(hdr[1:5]),
	}

	switch req.Op {
	case OpRead:
		return req, nil

	case OpWrite:
		if int64(req.Length) > int64(maxFrameSize) {
			if _, err := io.CopyN(io.Discard, r, int64(req.Length)); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, req.Length)
		}

		req.Payload = make([]byte, req.Length)
		if _, err := io.ReadFull(r, req.Payload); err != nil {
			return nil, err
		}

		return req, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownOp, hdr[0])
	}
}

func WriteResponse(w io.Writer, resp *Response) error {
	var hdr [responseHeaderSize]byte
	hdr[0] = byte(resp.Status)
	binary.BigEndian.PutUint32(hdr[1:5], resp.Count)
	binary.BigEndian.PutUint32(hdr[5:9], uint32(len(resp.Payload)))

	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	if len(resp.Payload) > 0 {
		if _, err := w.Write(resp.Payload); err != nil {
			return err
		}
	}

	return nil
}

// ReadResponse decodes a response from r.
// A payload longer than maxFrameSize returns [ErrFrameTooLarge].
func ReadResponse(r io.Reader, maxFrameSize int) (*Response, error) {
	var hdr [responseHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}

	resp := &Response{
		Status: Status(hdr[0]),
		Count:  binary.BigEndian.Uint32(hdr[1:5]),
	}

	if resp.Status != StatusOK && resp.Status != StatusError {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, hdr[0])
	}

	payloadLen := binary.BigEndian.Uint32(hdr[5:9])
	if int64(payloadLen) > int64(maxFrameSize) {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, payloadLen)
	}

	if payloadLen > 0 {
		resp.Payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(r, resp.Payload); err != nil {
			return nil, err
		}
	}

	return resp, nil
}

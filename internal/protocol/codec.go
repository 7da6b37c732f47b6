package protocol

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const (
	// headerLen is the fixed frame header: 1 tag byte + 4 length bytes.
	headerLen = 5

	// DefaultMaxPayload bounds a single frame payload. Anything larger is
	// treated as malformed input, not as a resource request.
	DefaultMaxPayload = 16 << 20
)

// ErrIncomplete signals that the decoder needs more bytes before it can
// produce the next frame. It is a normal flow-control condition, not a
// failure.
var ErrIncomplete = errors.New("incomplete frame")

// MalformedFrameError reports input that can never become a valid frame:
// an unknown type tag, a payload length above the ceiling, or a payload that
// does not unmarshal. The connection owning the stream must close; there is
// no resynchronization.
type MalformedFrameError struct {
	Reason string
}

func (e *MalformedFrameError) Error() string {
	return "malformed frame: " + e.Reason
}

// Encode serializes a frame into its wire form.
func Encode(f Frame) ([]byte, error) {
	payload, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", f.FrameType(), err)
	}

	buf := make([]byte, headerLen+len(payload))
	buf[0] = byte(f.FrameType())
	binary.BigEndian.PutUint32(buf[1:headerLen], uint32(len(payload)))
	copy(buf[headerLen:], payload)
	return buf, nil
}

// Decoder reassembles frames from an arbitrarily chunked byte stream.
// All partial-read state is confined to the internal buffer, so a frame
// split across any number of reads is never dropped.
//
// Decoder is not safe for concurrent use; each connection owns exactly one.
type Decoder struct {
	buf        bytes.Buffer
	maxPayload uint32
}

// NewDecoder returns a Decoder enforcing the given payload ceiling.
// A non-positive ceiling falls back to DefaultMaxPayload.
func NewDecoder(maxPayload int) *Decoder {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}
	return &Decoder{maxPayload: uint32(maxPayload)}
}

// Feed appends raw bytes read from the transport.
func (d *Decoder) Feed(p []byte) {
	d.buf.Write(p)
}

// Next returns the next complete frame, ErrIncomplete if more input is
// needed, or a *MalformedFrameError for unrecoverable input.
func (d *Decoder) Next() (Frame, error) {
	if d.buf.Len() < headerLen {
		return nil, ErrIncomplete
	}

	header := d.buf.Bytes()[:headerLen]
	tag := FrameType(header[0])
	length := binary.BigEndian.Uint32(header[1:headerLen])

	if !validTag(tag) {
		return nil, &MalformedFrameError{Reason: fmt.Sprintf("unknown type tag 0x%02x", header[0])}
	}
	if length > d.maxPayload {
		return nil, &MalformedFrameError{Reason: fmt.Sprintf("payload of %d bytes exceeds ceiling of %d", length, d.maxPayload)}
	}
	if d.buf.Len() < headerLen+int(length) {
		return nil, ErrIncomplete
	}

	// The complete frame is buffered; consume it.
	d.buf.Next(headerLen)
	payload := make([]byte, length)
	if _, err := io.ReadFull(&d.buf, payload); err != nil {
		return nil, &MalformedFrameError{Reason: err.Error()}
	}

	return unmarshalPayload(tag, payload)
}

// Buffered reports how many undecoded bytes the decoder is holding.
func (d *Decoder) Buffered() int {
	return d.buf.Len()
}

// ReadFrame reads exactly one frame from r, blocking until a full frame
// arrives. It is the stream-oriented counterpart of Decoder for callers that
// own the reader, such as the client.
func ReadFrame(r io.Reader, maxPayload int) (Frame, error) {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}

	var header [headerLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	tag := FrameType(header[0])
	length := binary.BigEndian.Uint32(header[1:])

	if !validTag(tag) {
		return nil, &MalformedFrameError{Reason: fmt.Sprintf("unknown type tag 0x%02x", header[0])}
	}
	if length > uint32(maxPayload) {
		return nil, &MalformedFrameError{Reason: fmt.Sprintf("payload of %d bytes exceeds ceiling of %d", length, maxPayload)}
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}

	return unmarshalPayload(tag, payload)
}

// WriteFrame encodes f and writes it to w in one call.
func WriteFrame(w io.Writer, f Frame) error {
	b, err := Encode(f)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func validTag(t FrameType) bool {
	return t >= TypeLogin && t <= TypeSystem
}

func unmarshalPayload(tag FrameType, payload []byte) (Frame, error) {
	var (
		f   Frame
		err error
	)

	switch tag {
	case TypeLogin:
		var v Login
		err = json.Unmarshal(payload, &v)
		f = v
	case TypeText:
		var v Text
		err = json.Unmarshal(payload, &v)
		f = v
	case TypeFile:
		var v File
		err = json.Unmarshal(payload, &v)
		f = v
	case TypeImage:
		var v Image
		err = json.Unmarshal(payload, &v)
		f = v
	case TypeQuit:
		var v Quit
		err = json.Unmarshal(payload, &v)
		f = v
	case TypeError:
		var v Error
		err = json.Unmarshal(payload, &v)
		f = v
	case TypeSystem:
		var v System
		err = json.Unmarshal(payload, &v)
		f = v
	default:
		return nil, &MalformedFrameError{Reason: fmt.Sprintf("unknown type tag 0x%02x", byte(tag))}
	}

	if err != nil {
		return nil, &MalformedFrameError{Reason: fmt.Sprintf("%s payload: %v", tag, err)}
	}
	return f, nil
}

package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFrames() []Frame {
	return []Frame{
		Login{Username: "alice", Password: "password123"},
		Text{Body: "aGVsbG8gd29ybGQ="},
		File{Name: "notes.txt", Data: []byte{0x00, 0x01, 0xff, 0xfe}},
		Image{Name: "cat.png", Data: bytes.Repeat([]byte{0xab}, 512)},
		Quit{},
		Error{Code: CodeInvalidInput, Reason: "bad frame"},
		System{Note: "alice joined"},
	}
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	for _, want := range sampleFrames() {
		b, err := Encode(want)
		require.NoError(t, err)

		d := NewDecoder(0)
		d.Feed(b)
		got, err := d.Next()
		require.NoError(t, err)
		assert.Equal(t, want, got)

		// Nothing should be left over.
		_, err = d.Next()
		assert.ErrorIs(t, err, ErrIncomplete)
		assert.Equal(t, 0, d.Buffered())
	}
}

// Feeding the same byte stream in arbitrary chunks must reconstruct the same
// frame sequence as a single-shot decode.
func TestDecoderReassemblyAcrossSplits(t *testing.T) {
	frames := sampleFrames()

	var stream []byte
	for _, f := range frames {
		b, err := Encode(f)
		require.NoError(t, err)
		stream = append(stream, b...)
	}

	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 50; trial++ {
		d := NewDecoder(0)
		var got []Frame

		rest := stream
		for len(rest) > 0 {
			n := 1 + rng.Intn(len(rest))
			d.Feed(rest[:n])
			rest = rest[n:]

			for {
				f, err := d.Next()
				if errors.Is(err, ErrIncomplete) {
					break
				}
				require.NoError(t, err)
				got = append(got, f)
			}
		}

		require.Equal(t, frames, got, "trial %d", trial)
	}
}

func TestDecoderUnknownTag(t *testing.T) {
	d := NewDecoder(0)
	d.Feed([]byte{0x7f, 0, 0, 0, 0})

	_, err := d.Next()
	var malformed *MalformedFrameError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Reason, "unknown type tag")
}

func TestDecoderOversizedPayload(t *testing.T) {
	header := make([]byte, 5)
	header[0] = byte(TypeText)
	binary.BigEndian.PutUint32(header[1:], 1024+1)

	d := NewDecoder(1024)
	d.Feed(header)

	_, err := d.Next()
	var malformed *MalformedFrameError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Reason, "exceeds ceiling")
}

func TestDecoderOversizeDetectedBeforePayloadArrives(t *testing.T) {
	// Only the header is available, yet the ceiling violation must already
	// be reported so the connection can close without buffering the blob.
	header := make([]byte, 5)
	header[0] = byte(TypeFile)
	binary.BigEndian.PutUint32(header[1:], 1<<30)

	d := NewDecoder(4096)
	d.Feed(header)

	_, err := d.Next()
	var malformed *MalformedFrameError
	require.ErrorAs(t, err, &malformed)
}

func TestDecoderIncomplete(t *testing.T) {
	b, err := Encode(Text{Body: "ZGF0YQ=="})
	require.NoError(t, err)

	d := NewDecoder(0)

	for i := 0; i < len(b)-1; i++ {
		d.Feed(b[i : i+1])
		_, err := d.Next()
		require.ErrorIs(t, err, ErrIncomplete, "after %d of %d bytes", i+1, len(b))
	}

	d.Feed(b[len(b)-1:])
	f, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, Text{Body: "ZGF0YQ=="}, f)
}

func TestDecoderMalformedJSONPayload(t *testing.T) {
	payload := []byte("{not json")
	b := make([]byte, 5+len(payload))
	b[0] = byte(TypeLogin)
	binary.BigEndian.PutUint32(b[1:5], uint32(len(payload)))
	copy(b[5:], payload)

	d := NewDecoder(0)
	d.Feed(b)

	_, err := d.Next()
	var malformed *MalformedFrameError
	require.ErrorAs(t, err, &malformed)
}

func TestReadWriteFrame(t *testing.T) {
	var buf bytes.Buffer

	for _, want := range sampleFrames() {
		require.NoError(t, WriteFrame(&buf, want))
	}
	for _, want := range sampleFrames() {
		got, err := ReadFrame(&buf, 0)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestFrameTypeString(t *testing.T) {
	assert.Equal(t, "login", TypeLogin.String())
	assert.Equal(t, "system", TypeSystem.String())
	assert.Equal(t, "unknown(0x7f)", FrameType(0x7f).String())
}

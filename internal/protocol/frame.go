// Package protocol defines the wire protocol spoken between chat clients and
// the server: a closed set of frame kinds and a length-prefixed binary codec.
//
// Every frame travels as a 1-byte type tag, a 4-byte big-endian payload
// length, and a JSON payload. Binary blobs inside File and Image frames are
// opaque to the codec; only their size is validated.
package protocol

import "fmt"

// FrameType tags one frame kind on the wire.
type FrameType byte

const (
	TypeLogin  FrameType = 0x01
	TypeText   FrameType = 0x02
	TypeFile   FrameType = 0x03
	TypeImage  FrameType = 0x04
	TypeQuit   FrameType = 0x05
	TypeError  FrameType = 0x06
	TypeSystem FrameType = 0x07
)

func (t FrameType) String() string {
	switch t {
	case TypeLogin:
		return "login"
	case TypeText:
		return "text"
	case TypeFile:
		return "file"
	case TypeImage:
		return "image"
	case TypeQuit:
		return "quit"
	case TypeError:
		return "error"
	case TypeSystem:
		return "system"
	}
	return fmt.Sprintf("unknown(0x%02x)", byte(t))
}

// ErrorCode classifies an Error frame for the receiving side.
type ErrorCode string

const (
	CodeInvalidInput     ErrorCode = "invalid_input"
	CodePermissionDenied ErrorCode = "permission_denied"
	CodeServerError      ErrorCode = "server_error"
	CodeNetworkError     ErrorCode = "network_error"
	CodeImageProcessing  ErrorCode = "image_processing_error"
	CodeUnknown          ErrorCode = "unknown_error"
)

// Frame is the closed sum of all protocol message kinds. Every consumer
// switches exhaustively over the concrete types below.
type Frame interface {
	FrameType() FrameType
}

// Login authenticates a connection. It is the only frame accepted before the
// session is authenticated.
type Login struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Text carries one chat message. Body is the base64 form of the encrypted
// message payload; plaintext never crosses the wire.
type Text struct {
	Body string `json:"body"`
}

// File carries a named binary attachment. Data is ciphertext.
type File struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// Image carries a named image. Data is ciphertext; the server re-encodes
// every image to PNG on receipt.
type Image struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// Quit announces a clean disconnect.
type Quit struct{}

// Error reports a failure to the peer.
type Error struct {
	Code   ErrorCode `json:"code"`
	Reason string    `json:"reason"`
}

// System carries an informational server notice (acknowledgments, join and
// leave notifications, the session token issued on login).
type System struct {
	Note string `json:"note"`
}

func (Login) FrameType() FrameType  { return TypeLogin }
func (Text) FrameType() FrameType   { return TypeText }
func (File) FrameType() FrameType   { return TypeFile }
func (Image) FrameType() FrameType  { return TypeImage }
func (Quit) FrameType() FrameType   { return TypeQuit }
func (Error) FrameType() FrameType  { return TypeError }
func (System) FrameType() FrameType { return TypeSystem }

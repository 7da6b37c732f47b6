package blob

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/gabriel-vasile/mimetype"
)

// NormalizeImage decodes a plaintext image payload and re-encodes it as PNG.
// Only PNG, JPEG and GIF inputs are accepted; anything else is rejected before
// a decoder ever touches the bytes.
func NormalizeImage(data []byte) ([]byte, error) {
	mt := mimetype.Detect(data)

	var (
		img image.Image
		err error
	)
	switch mt.String() {
	case "image/png":
		img, err = png.Decode(bytes.NewReader(data))
	case "image/jpeg":
		img, err = jpeg.Decode(bytes.NewReader(data))
	case "image/gif":
		img, err = gif.Decode(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported image type %s", mt.String())
	}
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

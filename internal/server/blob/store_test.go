package blob

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestSaveFile(t *testing.T) {
	s := newTestStore(t)

	payload := []byte("opaque ciphertext")
	name, err := s.SaveFile("report.pdf", payload)
	if err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	if name != "report.pdf" {
		t.Errorf("stored name = %q, want report.pdf", name)
	}

	got, err := os.ReadFile(filepath.Join(s.filesDir, name))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("stored bytes differ from payload")
	}
}

func TestSaveFileStripsPath(t *testing.T) {
	s := newTestStore(t)

	name, err := s.SaveFile("../../etc/passwd", []byte("x"))
	if err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	if name != "passwd" {
		t.Errorf("stored name = %q, want passwd", name)
	}
	if _, err := os.Stat(filepath.Join(s.filesDir, "passwd")); err != nil {
		t.Errorf("blob not inside files dir: %v", err)
	}
}

func TestSaveFileRejectsEmptyName(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"", "  ", "..", "."} {
		if _, err := s.SaveFile(name, []byte("x")); err == nil {
			t.Errorf("SaveFile(%q): expected error", name)
		}
	}
}

func TestSaveImageName(t *testing.T) {
	s := newTestStore(t)

	name, err := s.SaveImage("cat.jpg", []byte("ciphertext"))
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	if !strings.HasPrefix(name, "cat_") || !strings.HasSuffix(name, ".png") {
		t.Errorf("stored name = %q, want cat_<ts>.png", name)
	}
	if _, err := os.Stat(filepath.Join(s.imagesDir, name)); err != nil {
		t.Errorf("blob not inside images dir: %v", err)
	}
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 128, A: 255})
		}
	}
	return img
}

func TestNormalizeImageFromJPEG(t *testing.T) {
	var in bytes.Buffer
	if err := jpeg.Encode(&in, testImage(), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}

	out, err := NormalizeImage(in.Bytes())
	if err != nil {
		t.Fatalf("NormalizeImage: %v", err)
	}

	decoded, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not valid png: %v", err)
	}
	if got := decoded.Bounds(); got != image.Rect(0, 0, 4, 4) {
		t.Errorf("bounds = %v, want (0,0)-(4,4)", got)
	}
}

func TestNormalizeImagePassthroughPNG(t *testing.T) {
	var in bytes.Buffer
	if err := png.Encode(&in, testImage()); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	out, err := NormalizeImage(in.Bytes())
	if err != nil {
		t.Fatalf("NormalizeImage: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(out)); err != nil {
		t.Fatalf("output is not valid png: %v", err)
	}
}

func TestNormalizeImageRejectsNonImage(t *testing.T) {
	if _, err := NormalizeImage([]byte("definitely not an image")); err == nil {
		t.Fatal("expected error for non-image payload")
	}
}

func TestNormalizeImageRejectsCorrupt(t *testing.T) {
	var in bytes.Buffer
	if err := png.Encode(&in, testImage()); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	data := in.Bytes()
	// keep the magic bytes so detection still says png, then truncate
	if _, err := NormalizeImage(data[:16]); err == nil {
		t.Fatal("expected error for truncated png")
	}
}

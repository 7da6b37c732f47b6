// Package blob stores file and image payloads at rest. Callers hand it
// ciphertext only; the store never sees plaintext and never decrypts.
//
// Files keep their client-supplied name under files/, images are renamed
// with a timestamp under images/ after normalization to PNG.
package blob

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cipherchat/internal/filex"
)

type Store struct {
	filesDir  string
	imagesDir string
}

// NewStore prepares the files/ and images/ subdirectories under root.
func NewStore(root string) (*Store, error) {
	filesDir, err := filex.EnsureSubDir(root, "files")
	if err != nil {
		return nil, err
	}

	imagesDir, err := filex.EnsureSubDir(root, "images")
	if err != nil {
		return nil, err
	}

	return &Store{filesDir: filesDir, imagesDir: imagesDir}, nil
}

// SaveFile writes an encrypted file payload and returns the stored name.
// The client-supplied name is reduced to its base to keep writes inside the
// store directory.
func (s *Store) SaveFile(name string, encrypted []byte) (string, error) {
	base := sanitize(name)
	if base == "" {
		return "", fmt.Errorf("invalid file name %q", name)
	}

	if err := os.WriteFile(filepath.Join(s.filesDir, base), encrypted, 0o660); err != nil {
		return "", fmt.Errorf("write file blob: %w", err)
	}
	return base, nil
}

// SaveImage writes an encrypted, already-normalized image payload. The
// stored name is <base>_<unix>.png so repeated uploads never clobber each
// other.
func (s *Store) SaveImage(name string, encrypted []byte) (string, error) {
	base := sanitize(name)
	if base == "" {
		return "", fmt.Errorf("invalid image name %q", name)
	}

	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	stored := fmt.Sprintf("%s_%d.png", base, time.Now().Unix())

	if err := os.WriteFile(filepath.Join(s.imagesDir, stored), encrypted, 0o660); err != nil {
		return "", fmt.Errorf("write image blob: %w", err)
	}
	return stored, nil
}

func sanitize(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) || base == ".." {
		return ""
	}
	return base
}

package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Fingerprint identifies the exact bytes that were uploaded.
type Fingerprint struct {
	Size   int64
	SHA256 string
}

// Digest streams path through SHA256 and returns its size and hex digest.
func Digest(path string) (Fingerprint, error) {
	in, err := os.Open(path)
	if err != nil {
		return Fingerprint{}, err
	}
	defer in.Close()

	hasher := sha256.New()
	written, err := io.Copy(hasher, in)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("hash %s: %w", path, err)
	}
	return Fingerprint{Size: written, SHA256: hex.EncodeToString(hasher.Sum(nil))}, nil
}

// OpenAppend opens path for appending with default permissions (0o644),
// creating it and its parent directory as needed.
func OpenAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create directory for %s: %w", path, err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return file, nil
}

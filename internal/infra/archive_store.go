package infra

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrArchiveIntegrity is returned when stored bytes no longer match their digest.
var ErrArchiveIntegrity = errors.New("archive: checksum mismatch")

// ArchiveStore is a write-once, content-addressed file store. Files live at
// {root}/{sha[:2]}/{sha}; identical content is stored once.
type ArchiveStore struct {
	root string
}

func NewArchiveStore(root string) *ArchiveStore {
	return &ArchiveStore{root: root}
}

// Put stores data and returns its hex sha256 and the path relative to root.
func (s *ArchiveStore) Put(data []byte) (digest, relPath string, err error) {
	sum := sha256.Sum256(data)
	digest = hex.EncodeToString(sum[:])
	relPath = filepath.Join(digest[:2], digest)
	full := filepath.Join(s.root, relPath)

	if _, statErr := os.Stat(full); statErr == nil {
		return digest, relPath, nil
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", "", fmt.Errorf("archive: create dir: %w", err)
	}

	// write to a temp file first so a crash never leaves a truncated blob under its digest
	tmp, err := os.CreateTemp(filepath.Dir(full), ".tmp-*")
	if err != nil {
		return "", "", fmt.Errorf("archive: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", "", fmt.Errorf("archive: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", "", fmt.Errorf("archive: close: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o444); err != nil {
		return "", "", fmt.Errorf("archive: chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return "", "", fmt.Errorf("archive: rename: %w", err)
	}
	return digest, relPath, nil
}

// Get reads the blob at relPath and verifies it against digest.
func (s *ArchiveStore) Get(relPath, digest string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, relPath))
	if err != nil {
		return nil, fmt.Errorf("archive: read %s: %w", relPath, err)
	}
	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != digest {
		return nil, ErrArchiveIntegrity
	}
	return data, nil
}

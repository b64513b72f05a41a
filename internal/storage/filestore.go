// Package storage provides the file collaborator that holds uploaded
// attachments. Records keep only the returned path; the bytes live outside
// the database.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxFileSize is the maximum accepted upload size in bytes (20 MB).
const MaxFileSize = 20 * 1024 * 1024

// ErrFileTooLarge is returned when an upload exceeds MaxFileSize.
var ErrFileTooLarge = fmt.Errorf("file exceeds maximum allowed size of %d bytes", MaxFileSize)

// FileStore is the contract for attachment storage backends.
type FileStore interface {
	// Save stores the content under the given category directory and returns
	// the path to reference from the owning record.
	Save(ctx context.Context, category, fileName string, r io.Reader) (string, error)
	// Open returns a reader over a previously saved file.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// Remove deletes a previously saved file. Used to clean up uploads whose
	// owning record was rolled back.
	Remove(ctx context.Context, path string) error
}

// DiskStore stores files under a root directory on local disk.
type DiskStore struct {
	Root string
}

// NewDiskStore creates the root directory if needed.
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload root: %w", err)
	}
	return &DiskStore{Root: root}, nil
}

// Save implements FileStore. The stored name is prefixed with a UUID so
// uploads never collide; the original file name is preserved for downloads.
func (s *DiskStore) Save(_ context.Context, category, fileName string, r io.Reader) (string, error) {
	dir := filepath.Join(s.Root, sanitizeSegment(category))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating category dir: %w", err)
	}

	name := uuid.New().String() + "_" + sanitizeSegment(fileName)
	full := filepath.Join(dir, name)

	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		os.Remove(full)
		return "", fmt.Errorf("writing file: %w", err)
	}
	if n > MaxFileSize {
		os.Remove(full)
		return "", ErrFileTooLarge
	}

	return filepath.Join(sanitizeSegment(category), name), nil
}

// Open implements FileStore. Paths outside the root are rejected.
func (s *DiskStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	clean := filepath.Clean(path)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, fmt.Errorf("invalid file path: %q", path)
	}
	return os.Open(filepath.Join(s.Root, clean))
}

// Remove implements FileStore.
func (s *DiskStore) Remove(_ context.Context, path string) error {
	clean := filepath.Clean(path)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return fmt.Errorf("invalid file path: %q", path)
	}
	return os.Remove(filepath.Join(s.Root, clean))
}

func sanitizeSegment(s string) string {
	s = filepath.Base(s)
	s = strings.ReplaceAll(s, string(os.PathSeparator), "_")
	if s == "" || s == "." {
		s = "file"
	}
	return s
}

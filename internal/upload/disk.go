package upload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// DiskStore keeps objects as files in a single directory.
type DiskStore struct {
	dir string
}

// NewDiskStore creates dir if needed and returns a store rooted there.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

func (s *DiskStore) path(name string) (string, error) {
	if !validName(name) {
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return filepath.Join(s.dir, name), nil
}

// Put writes data to dir/name, replacing any existing file.
func (s *DiskStore) Put(_ context.Context, name string, data []byte, contentType string) (*ObjectInfo, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to store object: %w", err)
	}

	stat, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}
	return &ObjectInfo{
		Name:        name,
		Size:        uint64(stat.Size()),
		ContentType: contentType,
		ModTime:     stat.ModTime(),
	}, nil
}

// Get reads dir/name. The content type is sniffed from the data.
func (s *DiskStore) Get(_ context.Context, name string) ([]byte, *ObjectInfo, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return nil, nil, fmt.Errorf("failed to read object: %w", err)
	}

	stat, err := os.Stat(p)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat object: %w", err)
	}
	return data, &ObjectInfo{
		Name:        name,
		Size:        uint64(len(data)),
		ContentType: mimetype.Detect(data).String(),
		ModTime:     stat.ModTime(),
	}, nil
}

// Close is a no-op.
func (s *DiskStore) Close() error {
	return nil
}

// Package upload stores chat attachments and serves them back over HTTP.
//
// Files are validated by Service against an extension and content-type
// allow-list, stored through a Store (local disk or a NATS JetStream object
// store) and described to chat clients as an Attachment.
package upload

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoFile is returned when a request carries no file part.
	ErrNoFile = errors.New("no file uploaded")
	// ErrFileTypeNotAllowed is returned when the extension or the detected
	// content type is outside the allow-list.
	ErrFileTypeNotAllowed = errors.New("file type not allowed")
	// ErrFileTooLarge is returned when a file exceeds the configured limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrNotFound is returned by stores for unknown object names.
	ErrNotFound = errors.New("file not found")
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Name        string
	Size        uint64
	ContentType string
	ModTime     time.Time
}

// Store persists uploaded objects by name.
type Store interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (*ObjectInfo, error)
	// Get returns ErrNotFound (possibly wrapped) for unknown names.
	Get(ctx context.Context, name string) ([]byte, *ObjectInfo, error)
	Close() error
}

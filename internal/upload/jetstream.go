package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// getContentType extracts Content-Type from headers with a default fallback.
func getContentType(headers nats.Header) string {
	if headers != nil {
		if ct := headers.Get("Content-Type"); ct != "" {
			return ct
		}
	}
	return "application/octet-stream"
}

// JetStreamStore keeps objects in a NATS JetStream object store bucket, so
// several relay instances can serve the same uploads.
type JetStreamStore struct {
	conn       *nats.Conn
	js         jetstream.JetStream
	store      jetstream.ObjectStore
	bucketName string
}

// NewJetStreamStore connects to NATS. Init must be called before use.
func NewJetStreamStore(natsURL, bucketName string) (*JetStreamStore, error) {
	conn, err := nats.Connect(natsURL, nats.Name("relaychat-uploads"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &JetStreamStore{
		conn:       conn,
		js:         js,
		bucketName: bucketName,
	}, nil
}

// Init binds the bucket, creating it on first use.
func (s *JetStreamStore) Init(ctx context.Context) error {
	store, err := s.js.ObjectStore(ctx, s.bucketName)
	if err == nil {
		s.store = store
		return nil
	}

	store, err = s.js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:      s.bucketName,
		Description: "relaychat attachments",
	})
	if err != nil {
		return fmt.Errorf("failed to create object store bucket: %w", err)
	}

	s.store = store
	return nil
}

// Put stores data under name with its content type as an object header.
func (s *JetStreamStore) Put(ctx context.Context, name string, data []byte, contentType string) (*ObjectInfo, error) {
	meta := jetstream.ObjectMeta{
		Name: name,
		Headers: nats.Header{
			"Content-Type": []string{contentType},
		},
	}

	info, err := s.store.Put(ctx, meta, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to store object: %w", err)
	}

	return &ObjectInfo{
		Name:        info.Name,
		Size:        info.Size,
		ContentType: contentType,
		ModTime:     info.ModTime,
	}, nil
}

// Get retrieves an object and its metadata.
func (s *JetStreamStore) Get(ctx context.Context, name string) ([]byte, *ObjectInfo, error) {
	result, err := s.store.Get(ctx, name)
	if err != nil {
		if errors.Is(err, jetstream.ErrObjectNotFound) {
			return nil, nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return nil, nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer result.Close()

	data, err := io.ReadAll(result)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read object data: %w", err)
	}

	info, err := result.Info()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get object info: %w", err)
	}

	return data, &ObjectInfo{
		Name:        info.Name,
		Size:        info.Size,
		ContentType: getContentType(info.Headers),
		ModTime:     info.ModTime,
	}, nil
}

// IsConnected returns whether the NATS connection is active.
func (s *JetStreamStore) IsConnected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

// Close drains and closes the NATS connection.
func (s *JetStreamStore) Close() error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Drain(); err != nil {
		s.conn.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}

package upload

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// DefaultMaxBytes is the upload size limit when none is configured.
const DefaultMaxBytes = 10 * 1024 * 1024

// URLPrefix is the path under which stored uploads are served.
const URLPrefix = "/uploads/"

var (
	allowedTypes      = regexp.MustCompile(`jpeg|jpg|png|gif|pdf|txt|doc|docx|xls|xlsx|ppt|pptx|mp4|mp3|zip|rar`)
	allowedExtensions = regexp.MustCompile(`^(` + allowedTypes.String() + `)$`)
)

// Content types for allowed extensions whose names the pattern does not match.
var allowedContentTypes = map[string]bool{
	"text/plain":                    true,
	"audio/mpeg":                    true,
	"application/msword":            true,
	"application/vnd.ms-excel":      true,
	"application/vnd.ms-powerpoint": true,
	"application/x-ole-storage":     true,
}

// Attachment is the JSON body returned for a successful upload. Clients
// embed it as the file of a chat_message.
type Attachment struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalname"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mimetype"`
	URL          string `json:"url"`
}

// Service validates uploads and stores them under unique names.
type Service struct {
	store    Store
	maxBytes int64
	log      *slog.Logger
	now      func() time.Time
}

// NewService creates a Service. A maxBytes of zero or less selects
// DefaultMaxBytes.
func NewService(store Store, maxBytes int64, logger *slog.Logger) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, maxBytes: maxBytes, log: logger, now: time.Now}
}

// Ready reports whether the backing store can serve requests. Stores without
// a connection to lose are always ready.
func (s *Service) Ready() bool {
	if c, ok := s.store.(interface{ IsConnected() bool }); ok {
		return c.IsConnected()
	}
	return true
}

// MaxBytes reports the per-file size limit.
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// Upload validates and stores one file and returns the attachment that chat
// clients embed in a chat_message.
func (s *Service) Upload(ctx context.Context, originalName string, data []byte) (*Attachment, error) {
	originalName = filepath.Base(strings.ReplaceAll(originalName, "\\", "/"))
	if originalName == "." || originalName == "/" || originalName == "" {
		return nil, ErrNoFile
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, len(data), s.maxBytes)
	}

	contentType, err := detectType(originalName, data)
	if err != nil {
		return nil, err
	}

	name := s.storedName(originalName)
	info, err := s.store.Put(ctx, name, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", name, err)
	}

	s.log.Info("file uploaded", "name", name, "size", info.Size, "type", contentType)
	return &Attachment{
		Filename:     name,
		OriginalName: originalName,
		Size:         int64(info.Size),
		MimeType:     contentType,
		URL:          URLPrefix + name,
	}, nil
}

// Open returns a stored object by its stored name.
func (s *Service) Open(ctx context.Context, name string) ([]byte, *ObjectInfo, error) {
	if !validName(name) {
		return nil, nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return s.store.Get(ctx, name)
}

// storedName is "<unix millis>-<random>-<original name>".
func (s *Service) storedName(originalName string) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%d-%s-%s", s.now().UnixMilli(), random, originalName)
}

// detectType requires both the extension and the sniffed content type to be
// allowed, and returns the content type.
func detectType(name string, data []byte) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if !allowedExtensions.MatchString(ext) {
		return "", fmt.Errorf("%w: extension %q", ErrFileTypeNotAllowed, ext)
	}

	detected := mimetype.Detect(data)
	base, _, err := mime.ParseMediaType(detected.String())
	if err != nil {
		base = detected.String()
	}
	if !allowedTypes.MatchString(base) && !allowedContentTypes[base] {
		return "", fmt.Errorf("%w: content type %q", ErrFileTypeNotAllowed, base)
	}
	return detected.String(), nil
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

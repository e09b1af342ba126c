package document

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tagithq/tagit/internal/audit"
)

// MaxUploadBytes is the hard upload ceiling (10 MiB).
const MaxUploadBytes = 10 * 1024 * 1024

var (
	ErrNotFound        = errors.New("document not found")
	ErrPayloadTooLarge = errors.New("document exceeds maximum upload size")
	ErrUnsupportedType = errors.New("unsupported document content type")
	ErrMissingName     = errors.New("document display name is required")
)

var allowedContentTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/jpg":       ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

// Object is a stored binary plus its descriptive metadata.
type Object struct {
	Key         string    `json:"key" bson:"_id"`
	OwnerID     string    `json:"owner_id" bson:"owner_id"`
	Name        string    `json:"name" bson:"name"`
	ContentType string    `json:"content_type" bson:"content_type"`
	SizeBytes   int64     `json:"size_bytes" bson:"size_bytes"`
	Data        []byte    `json:"-" bson:"data"`
	UploadedAt  time.Time `json:"uploaded_at" bson:"uploaded_at"`
}

// Upload is what the caller needs to register a DocumentRef: the timestamp
// id doubles as the retry de-duplication key.
type Upload struct {
	ID         string
	Key        string
	URL        string
	SizeBytes  int64
	UploadedAt time.Time
}

// ObjectStore persists the raw bytes. Keys are globally unique.
type ObjectStore interface {
	Put(ctx context.Context, obj *Object) error
	Get(ctx context.Context, key string) (*Object, error)
}

type Service interface {
	Store(ctx context.Context, ownerID, displayName, contentType string, data []byte) (*Upload, error)
	Resolve(ctx context.Context, key string) (*Object, error)
}

type service struct {
	objects ObjectStore
	baseURL string
	audit   audit.Service

	mu        sync.Mutex
	lastStamp int64
}

// NewService wires an object store behind the upload contract. baseURL is
// the public prefix retrieval URLs are issued under, e.g. "https://tagit.app".
func NewService(objects ObjectStore, baseURL string, audit audit.Service) Service {
	return &service{
		objects: objects,
		baseURL: strings.TrimRight(baseURL, "/"),
		audit:   audit,
	}
}

func (s *service) Store(ctx context.Context, ownerID, displayName, contentType string, data []byte) (*Upload, error) {
	if strings.TrimSpace(displayName) == "" {
		return nil, ErrMissingName
	}
	if int64(len(data)) > MaxUploadBytes {
		return nil, ErrPayloadTooLarge
	}
	ext, ok := allowedContentTypes[contentType]
	if !ok {
		return nil, ErrUnsupportedType
	}

	stamp := s.nextStamp()
	uploadedAt := time.UnixMilli(stamp).UTC()
	key := fmt.Sprintf("%s/%d_%s%s", ownerID, stamp, sanitizeName(displayName), ext)

	obj := &Object{
		Key:         key,
		OwnerID:     ownerID,
		Name:        displayName,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		Data:        data,
		UploadedAt:  uploadedAt,
	}
	if err := s.objects.Put(ctx, obj); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}

	s.audit.LogEvent(ctx, &audit.AuditEvent{
		EventType:  audit.EventUpload,
		UserID:     ownerID,
		Action:     "STORE",
		Resource:   "document",
		ResourceID: key,
		Status:     "success",
	})

	return &Upload{
		ID:         strconv.FormatInt(stamp, 10),
		Key:        key,
		URL:        s.baseURL + "/files/" + key,
		SizeBytes:  obj.SizeBytes,
		UploadedAt: uploadedAt,
	}, nil
}

func (s *service) Resolve(ctx context.Context, key string) (*Object, error) {
	obj, err := s.objects.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// nextStamp hands out strictly increasing millisecond timestamps so repeated
// uploads with the same display name never collide.
func (s *service) nextStamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp := time.Now().UnixMilli()
	if stamp <= s.lastStamp {
		stamp = s.lastStamp + 1
	}
	s.lastStamp = stamp
	return stamp
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	return strings.ReplaceAll(name, " ", "_")
}

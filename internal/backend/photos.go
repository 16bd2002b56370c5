package backend

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

// PhotoStore keeps student photos and returns the URL they are served at.
type PhotoStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// MemoryPhotos keeps photos in a map. URLs are "memory://<key>".
type MemoryPhotos struct {
	mu     sync.RWMutex
	photos map[string][]byte
}

func NewMemoryPhotos() *MemoryPhotos {
	return &MemoryPhotos{photos: make(map[string][]byte)}
}

func (m *MemoryPhotos) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.photos[key] = append([]byte(nil), data...)
	return "memory://" + key, nil
}

// Get returns a stored photo.
func (m *MemoryPhotos) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.photos[key]
	return b, ok
}

// MinioOptions configures the object store.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	BaseURL   string
}

// MinioPhotos writes photos to a MinIO/S3 bucket.
type MinioPhotos struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// NewMinioPhotos creates the MinIO client.
func NewMinioPhotos(opts MinioOptions) (*MinioPhotos, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init minio")
	}
	return &MinioPhotos{client: client, bucket: opts.Bucket, baseURL: strings.TrimRight(opts.BaseURL, "/")}, nil
}

// EnsureBucket creates the photo bucket before first use.
func (s *MinioPhotos) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.Wrapf(err, "check bucket %s", s.bucket)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return errors.Wrapf(err, "make bucket %s", s.bucket)
		}
	}
	return nil
}

func (s *MinioPhotos) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), opts); err != nil {
		return "", errors.Wrap(err, "upload photo")
	}
	return s.baseURL + "/" + key, nil
}

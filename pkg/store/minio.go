package store

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/fulmenhq/staticpush/pkg/config"
)

// Minio stores objects on a MinIO (or other S3-compatible) server.
type Minio struct {
	client *minio.Client
	bucket string
}

// NewMinio connects to cfg.Endpoint with static keys. An endpoint given as an
// https:// URL enables TLS.
func NewMinio(cfg config.StoreConfig) (*Minio, error) {
	endpoint := cfg.Endpoint
	secure := false
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		endpoint, secure = strings.TrimPrefix(endpoint, "https://"), true
	case strings.HasPrefix(endpoint, "http://"):
		endpoint = strings.TrimPrefix(endpoint, "http://")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, &Error{Op: "init", Key: cfg.Bucket, Err: err}
	}
	return &Minio{client: client, bucket: cfg.Bucket}, nil
}

// Name returns "MinIO".
func (m *Minio) Name() string { return "MinIO" }

// Put uploads body with its headers.
func (m *Minio) Put(ctx context.Context, key string, body []byte, h Headers) (int, error) {
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType:     h.ContentType,
		CacheControl:    h.CacheControl,
		ContentEncoding: h.ContentEncoding,
	})
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.StatusCode != 0 {
			return resp.StatusCode, &StatusError{Key: key, StatusCode: resp.StatusCode}
		}
		return 0, &Error{Op: "put", Key: key, Err: err}
	}
	return http.StatusOK, nil
}

// Get opens the object under key. The object is stat'ed first since GetObject is lazy.
func (m *Minio) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, m.translate(key, err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, m.translate(key, err)
	}
	return obj, nil
}

func (m *Minio) translate(key string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return &Error{Op: "get", Key: key, Err: err}
}

/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/

// Package store is the remote object store assets are published to.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fulmenhq/staticpush/pkg/config"
)

// ErrNotFound is returned by Get when no object exists under the key.
var ErrNotFound = errors.New("object not found")

// Headers are the HTTP headers stored with an object.
type Headers struct {
	ContentType     string
	CacheControl    string
	ContentEncoding string
}

// Store reads and writes objects by key.
type Store interface {
	// Put uploads body under key and returns the HTTP status of the upload.
	Put(ctx context.Context, key string, body []byte, h Headers) (int, error)
	// Get opens the object under key. A missing object is ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Name identifies the store in log lines.
	Name() string
}

// Error is a transport or service failure talking to the store.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// StatusError is a request that completed with a non-2xx status.
type StatusError struct {
	Key        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("store error on %s, code %d", e.Key, e.StatusCode)
}

// New opens the store described by cfg.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "s3":
		return NewS3(ctx, cfg)
	case "minio":
		return NewMinio(cfg)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// Package storetest provides an in-memory store for tests.
package storetest

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/fulmenhq/staticpush/pkg/store"
)

// Object is a stored body with its headers.
type Object struct {
	Body    []byte
	Headers store.Headers
}

// Memory is a Store backed by a map. GetErr and PutErr inject failures per key, and
// PutStatus forces a status code.
type Memory struct {
	mu      sync.Mutex
	objects map[string]Object
	puts    []string

	GetErr    map[string]error
	PutErr    map[string]error
	PutStatus map[string]int
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]Object)}
}

// Name returns "memory".
func (m *Memory) Name() string { return "memory" }

// Seed stores body under key without recording a put.
func (m *Memory) Seed(key string, body []byte, h store.Headers) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{Body: append([]byte(nil), body...), Headers: h}
}

// Put stores body under key.
func (m *Memory) Put(_ context.Context, key string, body []byte, h store.Headers) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.PutErr[key]; err != nil {
		return 0, &store.Error{Op: "put", Key: key, Err: err}
	}
	if code, ok := m.PutStatus[key]; ok {
		return code, nil
	}
	m.objects[key] = Object{Body: append([]byte(nil), body...), Headers: h}
	m.puts = append(m.puts, key)
	return http.StatusOK, nil
}

// Get returns the object under key.
func (m *Memory) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.GetErr[key]; err != nil {
		return nil, &store.Error{Op: "get", Key: key, Err: err}
	}
	obj, ok := m.objects[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.Body)), nil
}

// Object returns the object under key.
func (m *Memory) Object(key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// Puts returns the keys written by Put, in order.
func (m *Memory) Puts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.puts...)
}

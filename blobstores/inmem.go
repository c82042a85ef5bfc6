package blobstores

import (
	"context"
	"slices"
	"sync"
)

// Inmem implements [Store] in memory. Values are copied in and out.
type Inmem struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

var _ Store = (*Inmem)(nil)

func NewInmem() *Inmem {
	return &Inmem{blobs: make(map[string][]byte)}
}

func (s *Inmem) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.blobs[key]
	if !ok {
		return nil, ErrNotExist
	}
	return slices.Clone(value), nil
}

func (s *Inmem) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = slices.Clone(value)
	return nil
}

func (s *Inmem) Close() error { return nil }

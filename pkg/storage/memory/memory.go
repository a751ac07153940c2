// Package memory is an in-process Storage used by tests and local dry runs.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/feichai0017/songplay-etl/pkg/storage/object"
)

type Storage struct {
	mu      sync.RWMutex
	objects map[string]entry
	now     func() time.Time
}

type entry struct {
	data     []byte
	modified time.Time
}

func New() *Storage {
	return &Storage{
		objects: make(map[string]entry),
		now:     time.Now,
	}
}

func (s *Storage) List(ctx context.Context, prefix string) ([]object.Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]object.Info, 0)
	for key, e := range s.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, object.Info{Key: key, Size: int64(len(e.data)), LastModified: e.modified})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", object.ErrNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(e.data)), nil
}

func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read body for %s: %w", key, err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("short body for %s: got %d bytes, want %d", key, len(data), size)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = entry{data: data, modified: s.now()}
	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *Storage) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			delete(s.objects, key)
			n++
		}
	}
	return n, nil
}

func (s *Storage) DeleteKeys(ctx context.Context, keys []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, key := range keys {
		if _, ok := s.objects[key]; ok {
			delete(s.objects, key)
			n++
		}
	}
	return n, nil
}

// PutString is a test helper.
func (s *Storage) PutString(key, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = entry{data: []byte(body), modified: s.now()}
}

// Snapshot copies every object's bytes keyed by object key.
func (s *Storage) Snapshot() map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]byte, len(s.objects))
	for k, e := range s.objects {
		out[k] = append([]byte(nil), e.data...)
	}
	return out
}

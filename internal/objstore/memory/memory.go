// Package memory provides an in-process objstore.Client for tests and local
// experiments. Listings are lexicographically ordered and paginated.
package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rzbill/segstore/internal/objstore"
)

// DefaultPageSize mirrors the S3 ListObjectsV2 default.
const DefaultPageSize = 1000

// Options configures the in-memory backend.
type Options struct {
	// Bucket is reported by Bucket(). Defaults to "memory".
	Bucket string
	// PageSize bounds the number of objects per List page.
	PageSize int
}

// Store is a goroutine-safe in-memory bucket.
type Store struct {
	bucket   string
	pageSize int

	mu      sync.RWMutex
	objects map[string][]byte
	failing map[string]error

	ranges atomic.Int64
	heads  atomic.Int64
	lists  atomic.Int64
}

var _ objstore.Client = (*Store)(nil)

// New creates an empty bucket.
func New(opts Options) *Store {
	if opts.Bucket == "" {
		opts.Bucket = "memory"
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	return &Store{
		bucket:   opts.Bucket,
		pageSize: opts.PageSize,
		objects:  make(map[string][]byte),
		failing:  make(map[string]error),
	}
}

// Bucket returns the bucket name.
func (s *Store) Bucket() string { return s.bucket }

// List returns one page of keys under prefix. The token is the last key of the
// previous page.
func (s *Store) List(ctx context.Context, prefix, pageToken string) (objstore.Page, error) {
	if err := ctx.Err(); err != nil {
		return objstore.Page{}, err
	}
	s.lists.Add(1)
	if err := s.failure(prefix); err != nil {
		return objstore.Page{}, err
	}
	s.mu.RLock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) && k > pageToken {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var page objstore.Page
	for i, k := range keys {
		if i == s.pageSize {
			page.NextToken = keys[i-1]
			break
		}
		page.Objects = append(page.Objects, objstore.Object{Key: k, Size: int64(len(s.objects[k]))})
	}
	s.mu.RUnlock()
	return page, nil
}

// GetRange returns a reader positioned at start.
func (s *Store) GetRange(ctx context.Context, key string, start int64) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.ranges.Add(1)
	if err := s.failure(key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, objstore.NotFound(key)
	}
	if start < 0 || start > int64(len(data)) {
		return nil, objstore.Unavailable("get range", key, errors.New("range not satisfiable"))
	}
	return io.NopCloser(bytes.NewReader(data[start:])), nil
}

// HeadSize returns the stored length of key.
func (s *Store) HeadSize(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.heads.Add(1)
	if err := s.failure(key); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return 0, objstore.NotFound(key)
	}
	return int64(len(data)), nil
}

// Put stores a copy of body under key.
func (s *Store) Put(ctx context.Context, key string, body io.Reader, _ int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.failure(key); err != nil {
		return err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
	return nil
}

// Delete removes key; absent keys are ignored.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.failure(key); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// DeleteMany removes every key and reports per-key failures.
func (s *Store) DeleteMany(ctx context.Context, keys []string) ([]objstore.DeleteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]objstore.DeleteResult, 0, len(keys))
	for _, k := range keys {
		out = append(out, objstore.DeleteResult{Key: k, Err: s.Delete(ctx, k)})
	}
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// Fail makes every call touching key (or listing prefix) return err until
// cleared with Fail(key, nil).
func (s *Store) Fail(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failing, key)
		return
	}
	s.failing[key] = err
}

func (s *Store) failure(key string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err, ok := s.failing[key]; ok {
		return objstore.Unavailable("memory", key, err)
	}
	return nil
}

// RangeRequests reports how many ranged GETs were issued.
func (s *Store) RangeRequests() int64 { return s.ranges.Load() }

// HeadRequests reports how many size probes were issued.
func (s *Store) HeadRequests() int64 { return s.heads.Load() }

// ListRequests reports how many List pages were served.
func (s *Store) ListRequests() int64 { return s.lists.Load() }

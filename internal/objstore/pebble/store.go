package pebblestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/rzbill/segstore/internal/objstore"
	logpkg "github.com/rzbill/segstore/pkg/log"
)

// FsyncMode defines durability behavior for write operations.
type FsyncMode int

const (
	FsyncModeUnspecified FsyncMode = iota
	// FsyncModeAlways requests a WAL fsync on each committed write.
	FsyncModeAlways
	// FsyncModeInterval enables group-commit by allowing Pebble to coalesce WAL
	// syncs for writes within the configured interval.
	FsyncModeInterval
	// FsyncModeNever avoids forcing WAL syncs from the application.
	FsyncModeNever
)

// ParseFsyncMode maps a config string to a FsyncMode.
func ParseFsyncMode(s string) (FsyncMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return FsyncModeUnspecified, nil
	case "always":
		return FsyncModeAlways, nil
	case "interval":
		return FsyncModeInterval, nil
	case "never":
		return FsyncModeNever, nil
	}
	return FsyncModeUnspecified, fmt.Errorf("pebble: unknown fsync mode %q", s)
}

// DefaultPageSize bounds List pages.
const DefaultPageSize = 1000

var objectPrefix = []byte("obj/")

// Options configures the Pebble object store.
type Options struct {
	// DataDir is the path to the Pebble database directory.
	DataDir string
	// Bucket is the logical bucket name reported by Bucket().
	Bucket string
	// Fsync determines when to sync the WAL.
	Fsync FsyncMode
	// FsyncInterval controls group-commit when Fsync=FsyncModeInterval.
	FsyncInterval time.Duration
	// PageSize bounds the number of objects per List page.
	PageSize int
	// PebbleOptions allows advanced tuning of Pebble. If nil, defaults are used.
	PebbleOptions *pebble.Options
	// Logger receives Pebble's own log output. Nil keeps Pebble's default.
	Logger logpkg.Logger
}

// Store implements objstore.Client on a Pebble database.
type Store struct {
	inner     *pebble.DB
	bucket    string
	pageSize  int
	writeSync bool
}

var _ objstore.Client = (*Store)(nil)

// Open creates or opens the database with the provided options.
func Open(opts Options) (*Store, error) {
	if opts.DataDir == "" {
		return nil, errors.New("pebble: Options.DataDir is required")
	}
	if opts.Bucket == "" {
		opts.Bucket = "local"
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}

	po := opts.PebbleOptions
	if po == nil {
		po = &pebble.Options{}
	}
	if opts.Logger != nil {
		po.Logger = pebbleLogger{opts.Logger.WithComponent("pebble")}
	}

	switch opts.Fsync {
	case FsyncModeAlways:
		// Sync is passed on every commit instead.
	case FsyncModeInterval:
		if opts.FsyncInterval <= 0 {
			opts.FsyncInterval = 5 * time.Millisecond
		}
		po.WALMinSyncInterval = func() time.Duration { return opts.FsyncInterval }
	case FsyncModeNever:
	default:
		po.WALMinSyncInterval = func() time.Duration { return 5 * time.Millisecond }
	}

	inner, err := pebble.Open(opts.DataDir, po)
	if err != nil {
		return nil, objstore.Unavailable("open", opts.DataDir, err)
	}
	return &Store{
		inner:     inner,
		bucket:    opts.Bucket,
		pageSize:  opts.PageSize,
		writeSync: opts.Fsync == FsyncModeAlways,
	}, nil
}

// Close closes the Pebble database.
func (s *Store) Close() error {
	if s == nil || s.inner == nil {
		return nil
	}
	return s.inner.Close()
}

// Bucket returns the logical bucket name.
func (s *Store) Bucket() string { return s.bucket }

func objectKey(key string) []byte {
	return append(append([]byte(nil), objectPrefix...), key...)
}

// upperBound returns the smallest key greater than every key with prefix p.
func upperBound(p []byte) []byte {
	end := append([]byte(nil), p...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// List iterates keys under prefix in order, starting after pageToken.
func (s *Store) List(ctx context.Context, prefix, pageToken string) (objstore.Page, error) {
	if err := ctx.Err(); err != nil {
		return objstore.Page{}, err
	}
	lower := objectKey(prefix)
	if pageToken != "" {
		after := append(objectKey(pageToken), 0)
		if bytes.Compare(after, lower) > 0 {
			lower = after
		}
	}
	it, err := s.inner.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upperBound(objectKey(prefix))})
	if err != nil {
		return objstore.Page{}, objstore.Unavailable("list", prefix, err)
	}
	defer it.Close()

	var page objstore.Page
	for valid := it.First(); valid; valid = it.Next() {
		if len(page.Objects) == s.pageSize {
			page.NextToken = page.Objects[len(page.Objects)-1].Key
			break
		}
		key := string(it.Key()[len(objectPrefix):])
		page.Objects = append(page.Objects, objstore.Object{Key: key, Size: int64(len(it.Value()))})
	}
	if err := it.Error(); err != nil {
		return objstore.Page{}, objstore.Unavailable("list", prefix, err)
	}
	return page, nil
}

func (s *Store) get(key string) ([]byte, error) {
	val, closer, err := s.inner.Get(objectKey(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, objstore.NotFound(key)
		}
		return nil, objstore.Unavailable("get", key, err)
	}
	defer closer.Close()
	return append([]byte(nil), val...), nil
}

// GetRange returns the object's bytes from start to the end.
func (s *Store) GetRange(ctx context.Context, key string, start int64) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.get(key)
	if err != nil {
		return nil, err
	}
	if start < 0 || start > int64(len(data)) {
		return nil, objstore.Unavailable("get range", key, fmt.Errorf("start %d outside object of %d bytes", start, len(data)))
	}
	return io.NopCloser(bytes.NewReader(data[start:])), nil
}

// HeadSize returns the stored object length.
func (s *Store) HeadSize(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	data, err := s.get(key)
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

// Put reads body fully and commits it under key with the configured fsync policy.
func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf := bytes.NewBuffer(make([]byte, 0, max(size, 0)))
	if _, err := io.Copy(buf, body); err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	b := s.inner.NewBatch()
	defer b.Close()
	if err := b.Set(objectKey(key), buf.Bytes(), nil); err != nil {
		return objstore.Unavailable("put", key, err)
	}
	return objstore.Unavailable("put", key, b.Commit(s.syncMode()))
}

// Delete removes key. Pebble deletes are blind, so absent keys succeed.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return objstore.Unavailable("delete", key, s.inner.Delete(objectKey(key), s.syncMode()))
}

// DeleteMany removes every key in one atomic batch.
func (s *Store) DeleteMany(ctx context.Context, keys []string) ([]objstore.DeleteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := s.inner.NewBatch()
	defer b.Close()
	for _, k := range keys {
		if err := b.Delete(objectKey(k), nil); err != nil {
			return nil, objstore.Unavailable("delete", k, err)
		}
	}
	if err := b.Commit(s.syncMode()); err != nil {
		return nil, objstore.Unavailable("delete", strings.Join(keys, ","), err)
	}
	out := make([]objstore.DeleteResult, len(keys))
	for i, k := range keys {
		out[i] = objstore.DeleteResult{Key: k}
	}
	return out, nil
}

// Compact requests compaction of every object under prefix.
func (s *Store) Compact(prefix string) error {
	return s.inner.Compact(objectKey(prefix), upperBound(objectKey(prefix)), true)
}

func (s *Store) syncMode() *pebble.WriteOptions {
	if s.writeSync {
		return pebble.Sync
	}
	return pebble.NoSync
}

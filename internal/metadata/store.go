// Package metadata stores a topic's small key/value entries as individual
// objects under {topic}/metadata/{escaped-key}.
package metadata

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"

	"github.com/rzbill/segstore/internal/objstore"
	"github.com/rzbill/segstore/internal/segment"
)

// Store is the metadata namespace of one topic. It holds no state besides the
// topic name and is safe for concurrent use.
type Store struct {
	client objstore.Client
	topic  string
	prefix string
}

// New binds a store to topic.
func New(client objstore.Client, topic string) *Store {
	return &Store{client: client, topic: topic, prefix: segment.MetadataPrefix(topic)}
}

// Topic returns the owning topic.
func (s *Store) Topic() string { return s.topic }

// Keys lists the unescaped keys in ascending order. Directory placeholders and
// nested objects are skipped.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	objects, err := objstore.ListAll(ctx, s.client, s.prefix)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(objects))
	for _, o := range objects {
		rest := strings.TrimPrefix(o.Key, s.prefix)
		if rest == "" || strings.Contains(rest, "/") {
			continue
		}
		k, err := Unescape(rest)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Get returns the value stored under key, or an error wrapping
// objstore.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.client.GetRange(ctx, s.objectKey(key), 0)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, objstore.Unavailable("get metadata", s.objectKey(key), err)
	}
	return b, nil
}

// Put stores value under key, replacing any previous value.
func (s *Store) Put(ctx context.Context, key string, value []byte) (*Store, error) {
	if err := s.client.Put(ctx, s.objectKey(key), bytes.NewReader(value), int64(len(value))); err != nil {
		return s, err
	}
	return s, nil
}

// Remove deletes key. Removing an absent key succeeds.
func (s *Store) Remove(ctx context.Context, key string) (*Store, error) {
	if err := s.client.Delete(ctx, s.objectKey(key)); err != nil {
		return s, err
	}
	return s, nil
}

func (s *Store) objectKey(key string) string {
	return s.prefix + Escape(key)
}

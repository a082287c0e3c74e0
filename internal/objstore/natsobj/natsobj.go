// Package natsobj implements objstore.Client on a NATS JetStream object store
// bucket.
//
// The object store has no ranged reads and lists a whole bucket at once, so
// ranges are served by discarding the leading bytes of the stream and List
// answers with a single page holding every match.
package natsobj

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/rzbill/segstore/internal/objstore"
)

// Options configures the NATS object store client.
type Options struct {
	URL    string
	Bucket string
	// Name is reported to the server as the connection name.
	Name string
}

// Client is the NATS JetStream object store backend.
type Client struct {
	nc     *nats.Conn
	store  jetstream.ObjectStore
	bucket string
}

var _ objstore.Client = (*Client)(nil)

// Connect dials opts.URL and opens (or creates) the bucket.
func Connect(ctx context.Context, opts Options) (*Client, error) {
	if opts.URL == "" {
		opts.URL = nats.DefaultURL
	}
	natsOpts := []nats.Option{nats.MaxReconnects(-1)}
	if opts.Name != "" {
		natsOpts = append(natsOpts, nats.Name(opts.Name))
	}
	nc, err := nats.Connect(opts.URL, natsOpts...)
	if err != nil {
		return nil, objstore.Unavailable("connect", opts.URL, err)
	}
	c, err := New(ctx, nc, opts)
	if err != nil {
		nc.Close()
		return nil, err
	}
	c.nc = nc
	return c, nil
}

// New opens the bucket on an existing connection, creating it when absent.
// The connection is not owned by the returned client.
func New(ctx context.Context, nc *nats.Conn, opts Options) (*Client, error) {
	if opts.Bucket == "" {
		return nil, errors.New("natsobj: bucket is required")
	}
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, objstore.Unavailable("jetstream", opts.Bucket, err)
	}
	store, err := js.ObjectStore(ctx, opts.Bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		store, err = js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{Bucket: opts.Bucket})
		if errors.Is(err, jetstream.ErrBucketExists) {
			store, err = js.ObjectStore(ctx, opts.Bucket)
		}
	}
	if err != nil {
		return nil, objstore.Unavailable("open bucket", opts.Bucket, err)
	}
	return &Client{store: store, bucket: opts.Bucket}, nil
}

// Bucket returns the object store bucket name.
func (c *Client) Bucket() string { return c.bucket }

// List returns every key under prefix after pageToken, sorted, in one page.
// The bucket listing is a single round trip, so splitting it would only repeat
// that call per page.
func (c *Client) List(ctx context.Context, prefix, pageToken string) (objstore.Page, error) {
	infos, err := c.store.List(ctx)
	if errors.Is(err, jetstream.ErrNoObjectsFound) {
		return objstore.Page{}, nil
	}
	if err != nil {
		return objstore.Page{}, objstore.Unavailable("list", prefix, err)
	}
	objects := make([]objstore.Object, 0, len(infos))
	for _, info := range infos {
		if info.Deleted || !strings.HasPrefix(info.Name, prefix) || info.Name <= pageToken {
			continue
		}
		objects = append(objects, objstore.Object{Key: info.Name, Size: int64(info.Size)})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objstore.Page{Objects: objects}, nil
}

// GetRange streams the object and discards the first start bytes.
func (c *Client) GetRange(ctx context.Context, key string, start int64) (io.ReadCloser, error) {
	res, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, classify("get", key, err)
	}
	if start > 0 {
		if _, err := io.CopyN(io.Discard, res, start); err != nil {
			res.Close()
			return nil, objstore.Unavailable("get", key, fmt.Errorf("skip to %d: %w", start, err))
		}
	}
	return res, nil
}

// HeadSize reads the object info.
func (c *Client) HeadSize(ctx context.Context, key string) (int64, error) {
	info, err := c.store.GetInfo(ctx, key)
	if err != nil {
		return 0, classify("head", key, err)
	}
	return int64(info.Size), nil
}

// Put uploads body as a chunked object.
func (c *Client) Put(ctx context.Context, key string, body io.Reader, _ int64) error {
	if _, err := c.store.Put(ctx, jetstream.ObjectMeta{Name: key}, body); err != nil {
		return objstore.Unavailable("put", key, err)
	}
	return nil
}

// Delete marks key deleted; a missing object is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	err := c.store.Delete(ctx, key)
	if err != nil && !errors.Is(err, jetstream.ErrObjectNotFound) {
		return objstore.Unavailable("delete", key, err)
	}
	return nil
}

// DeleteMany deletes keys one by one.
func (c *Client) DeleteMany(ctx context.Context, keys []string) ([]objstore.DeleteResult, error) {
	out := make([]objstore.DeleteResult, 0, len(keys))
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out = append(out, objstore.DeleteResult{Key: k, Err: c.Delete(ctx, k)})
	}
	return out, nil
}

// Close drains the connection when the client owns it.
func (c *Client) Close() error {
	if c.nc == nil {
		return nil
	}
	return c.nc.Drain()
}

func classify(op, key string, err error) error {
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return fmt.Errorf("%s: %w", op, objstore.NotFound(key))
	}
	return objstore.Unavailable(op, key, err)
}

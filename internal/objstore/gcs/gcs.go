// Package gcs implements objstore.Client on Google Cloud Storage.
//
// Two storage clients are built: a read-only scoped client serves listing and
// reads, a read-write scoped client serves uploads and deletes.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/rzbill/segstore/internal/objstore"
)

// Credential providers accepted in Options.CredentialProvider.
const (
	CredentialsServiceAccount = "service-account"
	CredentialsComputeEngine  = "compute-engine"
)

// DefaultPageSize bounds List pages.
const DefaultPageSize = 1000

// Options configures the GCS client.
type Options struct {
	Bucket                string
	CredentialProvider    string
	ServiceAccountKeyFile string
	// Endpoint overrides the API endpoint, e.g. for an emulator. Setting it
	// disables authentication.
	Endpoint string
	PageSize int
}

// Client is the GCS backend.
type Client struct {
	bucket   string
	pageSize int

	readClient  *storage.Client
	writeClient *storage.Client
	read        *storage.BucketHandle
	write       *storage.BucketHandle
}

var _ objstore.Client = (*Client)(nil)

// ClientOptions builds API options for the given scope.
func ClientOptions(opts Options, scope string) ([]option.ClientOption, error) {
	out := []option.ClientOption{option.WithScopes(scope)}
	if opts.Endpoint != "" {
		return append(out, option.WithEndpoint(opts.Endpoint), option.WithoutAuthentication()), nil
	}
	switch opts.CredentialProvider {
	case CredentialsServiceAccount:
		if opts.ServiceAccountKeyFile == "" {
			return nil, errors.New("gcs: service-account credentials need a key file")
		}
		out = append(out, option.WithCredentialsFile(opts.ServiceAccountKeyFile))
	case "", CredentialsComputeEngine:
		// application default credentials, which resolve to the metadata server on GCE
	default:
		return nil, fmt.Errorf("gcs: unknown credential provider %q", opts.CredentialProvider)
	}
	return out, nil
}

// New builds the read-only and read-write clients bound to opts.Bucket.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.Bucket == "" {
		return nil, errors.New("gcs: bucket is required")
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	roOpts, err := ClientOptions(opts, storage.ScopeReadOnly)
	if err != nil {
		return nil, err
	}
	rwOpts, err := ClientOptions(opts, storage.ScopeReadWrite)
	if err != nil {
		return nil, err
	}
	rc, err := storage.NewClient(ctx, roOpts...)
	if err != nil {
		return nil, objstore.Unavailable("connect", opts.Bucket, err)
	}
	wc, err := storage.NewClient(ctx, rwOpts...)
	if err != nil {
		rc.Close()
		return nil, objstore.Unavailable("connect", opts.Bucket, err)
	}
	return &Client{
		bucket:      opts.Bucket,
		pageSize:    opts.PageSize,
		readClient:  rc,
		writeClient: wc,
		read:        rc.Bucket(opts.Bucket),
		write:       wc.Bucket(opts.Bucket),
	}, nil
}

// Bucket returns the bound bucket.
func (c *Client) Bucket() string { return c.bucket }

// List fetches one page through the API pager.
func (c *Client) List(ctx context.Context, prefix, pageToken string) (objstore.Page, error) {
	q := &storage.Query{Prefix: prefix}
	if err := q.SetAttrSelection([]string{"Name", "Size"}); err != nil {
		return objstore.Page{}, err
	}
	var attrs []*storage.ObjectAttrs
	next, err := iterator.NewPager(c.read.Objects(ctx, q), c.pageSize, pageToken).NextPage(&attrs)
	if err != nil {
		return objstore.Page{}, classify("list", prefix, err)
	}
	page := objstore.Page{Objects: make([]objstore.Object, 0, len(attrs)), NextToken: next}
	for _, a := range attrs {
		page.Objects = append(page.Objects, objstore.Object{Key: a.Name, Size: a.Size})
	}
	return page, nil
}

// GetRange opens a reader from start to the end of the object.
func (c *Client) GetRange(ctx context.Context, key string, start int64) (io.ReadCloser, error) {
	r, err := c.read.Object(key).NewRangeReader(ctx, start, -1)
	if err != nil {
		return nil, classify("get", key, err)
	}
	return r, nil
}

// HeadSize reads the object attributes.
func (c *Client) HeadSize(ctx context.Context, key string) (int64, error) {
	a, err := c.read.Object(key).Attrs(ctx)
	if err != nil {
		return 0, classify("head", key, err)
	}
	return a.Size, nil
}

// Put streams body through a resumable writer. The object becomes visible
// when the writer is closed.
func (c *Client) Put(ctx context.Context, key string, body io.Reader, _ int64) error {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w := c.write.Object(key).NewWriter(wctx)
	if _, err := io.Copy(w, body); err != nil {
		// cancelling the context aborts the upload
		cancel()
		_ = w.Close()
		return classify("put", key, err)
	}
	if err := w.Close(); err != nil {
		return classify("put", key, err)
	}
	return nil
}

// Delete removes key; a missing object is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	err := c.write.Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return classify("delete", key, err)
	}
	return nil
}

// DeleteMany deletes keys one by one. GCS has no bulk delete in the JSON API
// client.
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

// Close releases both underlying clients.
func (c *Client) Close() error {
	return errors.Join(c.readClient.Close(), c.writeClient.Close())
}

func classify(op, key string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%s: %w", op, objstore.NotFound(key))
	}
	return objstore.Unavailable(op, key, err)
}

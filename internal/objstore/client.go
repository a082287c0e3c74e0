package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrNotFound is returned when a key does not exist in the bucket.
	ErrNotFound = errors.New("object not found")
	// ErrBackendUnavailable wraps transport failures surfaced by a backend.
	ErrBackendUnavailable = errors.New("object storage unavailable")
	// ErrDeleteFailed is returned when a bulk delete reports per-key failures.
	ErrDeleteFailed = errors.New("delete failed")
)

// Object is one entry of a listing.
type Object struct {
	Key  string
	Size int64
}

// Page is one page of a prefix listing. NextToken is empty on the last page.
type Page struct {
	Objects   []Object
	NextToken string
}

// DeleteResult reports the outcome of deleting a single key in a bulk delete.
type DeleteResult struct {
	Key string
	Err error
}

// Client is the vendor-neutral surface every object storage backend implements.
// Implementations must be safe for concurrent use.
type Client interface {
	// Bucket names the bucket/container the client is bound to.
	Bucket() string
	// List returns one page of objects whose key starts with prefix, in
	// lexicographic key order. Pass the previous page's NextToken to continue.
	List(ctx context.Context, prefix, pageToken string) (Page, error)
	// GetRange opens a stream over the object from byte start to the end.
	GetRange(ctx context.Context, key string, start int64) (io.ReadCloser, error)
	// HeadSize returns the object length in bytes.
	HeadSize(ctx context.Context, key string) (int64, error)
	// Put writes the whole body to key, replacing any previous object. The
	// object is visible only once Put returns successfully.
	Put(ctx context.Context, key string, body io.Reader, size int64) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// DeleteMany removes keys and reports a result per key.
	DeleteMany(ctx context.Context, keys []string) ([]DeleteResult, error)
	// Close releases backend resources.
	Close() error
}

// ListAll follows continuation tokens until the listing is exhausted.
func ListAll(ctx context.Context, c Client, prefix string) ([]Object, error) {
	var out []Object
	token := ""
	for {
		page, err := c.List(ctx, prefix, token)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Objects...)
		if page.NextToken == "" {
			return out, nil
		}
		if page.NextToken == token {
			return nil, fmt.Errorf("list %q: continuation token did not advance: %w", prefix, ErrBackendUnavailable)
		}
		token = page.NextToken
	}
}

// JoinDeleteErrors folds per-key failures into a single ErrDeleteFailed.
// It returns nil when every key was removed.
func JoinDeleteErrors(results []DeleteResult) error {
	var failed []string
	var errs []error
	for _, r := range results {
		if r.Err == nil {
			continue
		}
		failed = append(failed, r.Key)
		errs = append(errs, r.Err)
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d key(s) [%s]: %w", ErrDeleteFailed, len(failed), strings.Join(failed, ", "), errors.Join(errs...))
}

// Unavailable wraps a backend error with ErrBackendUnavailable unless it is
// already classified.
func Unavailable(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrBackendUnavailable) {
		return err
	}
	return fmt.Errorf("%s %q: %w: %w", op, key, ErrBackendUnavailable, err)
}

// NotFound builds an ErrNotFound for key.
func NotFound(key string) error {
	return fmt.Errorf("%q: %w", key, ErrNotFound)
}

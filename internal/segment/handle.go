package segment

import (
	"context"
	"fmt"
	"os"

	"github.com/rzbill/segstore/internal/objstore"
)

// Handle references one segment object. It holds no buffered data.
type Handle struct {
	client objstore.Client
	key    string
	name   Name
	size   int64
}

// NewHandle builds a handle for topic and name. size may be 0 when unknown.
func NewHandle(client objstore.Client, topic string, name Name, size int64) *Handle {
	return &Handle{client: client, key: EncodeKey(topic, name.Filename()), name: name, size: size}
}

// HandleFromKey decodes key into a handle.
func HandleFromKey(client objstore.Client, key string, size int64) (*Handle, error) {
	_, name, err := ParseKey(key)
	if err != nil {
		return nil, err
	}
	return &Handle{client: client, key: key, name: name, size: size}, nil
}

// Bucket returns the bucket holding the segment.
func (h *Handle) Bucket() string { return h.client.Bucket() }

// Key returns the object key.
func (h *Handle) Key() string { return h.key }

// Name returns the decoded filename fields.
func (h *Handle) Name() Name { return h.name }

// Size returns the object size observed when the handle was listed, or 0.
func (h *Handle) Size() int64 { return h.size }

// LastBlockOffset returns the decoded offset of the final block.
func (h *Handle) LastBlockOffset() int64 { return h.name.LastBlockOffset }

// Open returns an opened seekable reader over the segment.
func (h *Handle) Open(ctx context.Context) (*Reader, error) {
	r := NewReader(ctx, h.client, h.key)
	if err := r.Open(); err != nil {
		return nil, err
	}
	return r, nil
}

// Upload publishes a finished local segment file to this key. The object is
// fully written before Upload returns.
func (h *Handle) Upload(ctx context.Context, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("upload %q: %w", h.key, err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("upload %q: %w", h.key, err)
	}
	if err := h.client.Put(ctx, h.key, f, st.Size()); err != nil {
		return err
	}
	h.size = st.Size()
	return nil
}

// Delete removes the segment object.
func (h *Handle) Delete(ctx context.Context) error {
	return h.client.Delete(ctx, h.key)
}

func (h *Handle) String() string {
	return fmt.Sprintf("segment{bucket=%q key=%q}", h.Bucket(), h.key)
}

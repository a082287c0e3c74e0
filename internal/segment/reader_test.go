package segment

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/segstore/internal/objstore"
	"github.com/rzbill/segstore/internal/objstore/memory"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func newReaderFixture(t *testing.T, data string) (*memory.Store, *Reader) {
	t.Helper()
	s := memory.New(memory.Options{})
	put(t, s, "t/obj", []byte(data))
	return s, NewReader(context.Background(), s, "t/obj")
}

func TestReaderLazyOpen(t *testing.T) {
	s, r := newReaderFixture(t, "0123456789")
	assert.Equal(t, int64(0), s.HeadRequests())
	assert.Equal(t, "t/obj", r.Key())

	require.NoError(t, r.Open())
	require.NoError(t, r.Open())
	n, err := r.Length()
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
	assert.Equal(t, int64(1), s.HeadRequests(), "length is probed once")
	assert.Equal(t, int64(0), s.RangeRequests())
}

func TestReaderSeekThenRead(t *testing.T) {
	s, r := newReaderFixture(t, "0123456789")
	defer r.Close()

	p, err := r.Seek(4, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(4), p)

	buf := make([]byte, 3)
	n, err := io.ReadFull(r, buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "456", string(buf))
	assert.Equal(t, int64(7), r.Tell())

	p, err = r.Seek(-2, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(5), p)

	p, err = r.Seek(-1, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(9), p)
	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "9", string(rest))

	// one ranged GET per seek, none for the reads that followed them
	assert.Equal(t, int64(3), s.RangeRequests())
}

func TestReaderSeekBounds(t *testing.T) {
	_, r := newReaderFixture(t, "0123456789")
	defer r.Close()

	_, err := r.Seek(9, io.SeekStart)
	require.NoError(t, err)

	for _, off := range []int64{-1, 10, 11} {
		pos, err := r.Seek(off, io.SeekStart)
		assert.ErrorIs(t, err, ErrInvalidSeek, "offset %d", off)
		assert.Equal(t, int64(9), pos, "position unchanged after rejected seek")
	}
	_, err = r.Seek(0, 42)
	assert.ErrorIs(t, err, ErrInvalidSeek)
}

func TestReaderEOFWithoutRequest(t *testing.T) {
	s, r := newReaderFixture(t, "abc")
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
	ranges := s.RangeRequests()

	n, err := r.Read(make([]byte, 4))
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, ranges, s.RangeRequests())
}

func TestReaderZeroLength(t *testing.T) {
	s, r := newReaderFixture(t, "")
	n, err := r.Read(make([]byte, 1))
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
	_, err = r.Seek(0, io.SeekStart)
	assert.ErrorIs(t, err, ErrInvalidSeek)
	assert.Equal(t, int64(0), s.RangeRequests())
}

func TestReaderClose(t *testing.T) {
	_, r := newReaderFixture(t, "abc")
	_, err := r.Read(make([]byte, 1))
	require.NoError(t, err)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err = r.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrReaderClosed)
	_, err = r.Seek(0, io.SeekStart)
	assert.ErrorIs(t, err, ErrReaderClosed)
	assert.ErrorIs(t, r.Open(), ErrReaderClosed)
}

func TestReaderMissingObject(t *testing.T) {
	s := memory.New(memory.Options{})
	r := NewReader(context.Background(), s, "t/missing")
	_, err := r.Read(make([]byte, 1))
	assert.ErrorIs(t, err, objstore.ErrNotFound)
}

type truncatingClient struct {
	*memory.Store
}

func (c truncatingClient) GetRange(ctx context.Context, key string, start int64) (io.ReadCloser, error) {
	rc, err := c.Store.GetRange(ctx, key, start)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	return io.NopCloser(bytes.NewReader(b[:len(b)/2])), nil
}

func TestReaderShortStream(t *testing.T) {
	s := memory.New(memory.Options{})
	put(t, s, "t/obj", []byte("0123456789"))
	r := NewReader(context.Background(), truncatingClient{s}, "t/obj")
	defer r.Close()

	_, err := io.ReadAll(r)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("ReadAll() err = %v, want ErrUnexpectedEOF", err)
	}
}

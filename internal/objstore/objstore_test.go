package objstore_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/segstore/internal/objstore"
	"github.com/rzbill/segstore/internal/objstore/memory"
)

type stuckClient struct {
	*memory.Store
}

func (stuckClient) List(context.Context, string, string) (objstore.Page, error) {
	return objstore.Page{Objects: []objstore.Object{{Key: "a", Size: 1}}, NextToken: ""}, nil
}

type loopingClient struct {
	*memory.Store
}

func (loopingClient) List(context.Context, string, string) (objstore.Page, error) {
	return objstore.Page{NextToken: "same"}, nil
}

func TestListAllFollowsTokens(t *testing.T) {
	ctx := context.Background()
	s := memory.New(memory.Options{PageSize: 3})
	for _, k := range []string{"p/a", "p/b", "p/c", "p/d", "p/e", "p/f", "p/g", "q/x"} {
		require.NoError(t, s.Put(ctx, k, bytes.NewReader([]byte(k)), 3))
	}
	got, err := objstore.ListAll(ctx, s, "p/")
	require.NoError(t, err)
	require.Len(t, got, 7)
	assert.Equal(t, "p/a", got[0].Key)
	assert.Equal(t, "p/g", got[6].Key)
	assert.Equal(t, int64(3), s.ListRequests())
}

func TestListAllSinglePage(t *testing.T) {
	got, err := objstore.ListAll(context.Background(), stuckClient{memory.New(memory.Options{})}, "")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestListAllRejectsStuckToken(t *testing.T) {
	_, err := objstore.ListAll(context.Background(), loopingClient{memory.New(memory.Options{})}, "p/")
	assert.ErrorIs(t, err, objstore.ErrBackendUnavailable)
}

func TestJoinDeleteErrors(t *testing.T) {
	assert.NoError(t, objstore.JoinDeleteErrors(nil))
	assert.NoError(t, objstore.JoinDeleteErrors([]objstore.DeleteResult{{Key: "a"}}))

	cause := errors.New("access denied")
	err := objstore.JoinDeleteErrors([]objstore.DeleteResult{{Key: "a"}, {Key: "b", Err: cause}})
	require.Error(t, err)
	assert.ErrorIs(t, err, objstore.ErrDeleteFailed)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "b")
}

func TestUnavailableKeepsClassification(t *testing.T) {
	assert.NoError(t, objstore.Unavailable("op", "k", nil))
	nf := objstore.NotFound("k")
	assert.Same(t, nf, objstore.Unavailable("op", "k", nf))
	err := objstore.Unavailable("op", "k", io.ErrClosedPipe)
	assert.ErrorIs(t, err, objstore.ErrBackendUnavailable)
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

type recordingHook struct {
	mu    sync.Mutex
	calls map[string]int
	errs  map[string]int
	bytes map[string]int64
}

func newRecordingHook() *recordingHook {
	return &recordingHook{calls: map[string]int{}, errs: map[string]int{}, bytes: map[string]int64{}}
}

func (h *recordingHook) ObserveCall(op string, _ time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls[op]++
	if err != nil {
		h.errs[op]++
	}
}

func (h *recordingHook) ObserveBytes(op string, n int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bytes[op] += n
}

func TestInstrumentReportsCalls(t *testing.T) {
	ctx := context.Background()
	mem := memory.New(memory.Options{Bucket: "b"})
	hook := newRecordingHook()
	c := objstore.Instrument(mem, hook)
	assert.Equal(t, "b", c.Bucket())

	require.NoError(t, c.Put(ctx, "k", bytes.NewReader([]byte("hello")), 5))
	n, err := c.HeadSize(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	rc, err := c.GetRange(ctx, "k", 1)
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "ello", string(b))

	_, err = c.HeadSize(ctx, "missing")
	assert.ErrorIs(t, err, objstore.ErrNotFound)

	_, err = c.List(ctx, "", "")
	require.NoError(t, err)
	require.NoError(t, c.Delete(ctx, "k"))

	mem.Fail("bad", errors.New("denied"))
	res, err := c.DeleteMany(ctx, []string{"x", "bad"})
	require.NoError(t, err)
	assert.Len(t, res, 2)
	require.NoError(t, c.Close())

	assert.Equal(t, 1, hook.calls[objstore.OpPut])
	assert.Equal(t, 2, hook.calls[objstore.OpHeadSize])
	assert.Equal(t, 1, hook.errs[objstore.OpHeadSize])
	assert.Equal(t, 1, hook.calls[objstore.OpGetRange])
	assert.Equal(t, 1, hook.calls[objstore.OpList])
	assert.Equal(t, 1, hook.calls[objstore.OpDelete])
	assert.Equal(t, 1, hook.errs[objstore.OpDeleteMany], "partial bulk delete is reported as an error")
	assert.Equal(t, int64(5), hook.bytes[objstore.OpPut])
	assert.Equal(t, int64(4), hook.bytes[objstore.OpGetRange])
}

func TestInstrumentNilHook(t *testing.T) {
	c := objstore.Instrument(memory.New(memory.Options{}), nil)
	_, err := c.List(context.Background(), "", "")
	assert.NoError(t, err)
}

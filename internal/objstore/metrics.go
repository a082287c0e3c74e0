package objstore

import (
	"context"
	"io"
	"time"
)

// Operation names reported to a MetricsHook.
const (
	OpList       = "list"
	OpGetRange   = "get_range"
	OpHeadSize   = "head_size"
	OpPut        = "put"
	OpDelete     = "delete"
	OpDeleteMany = "delete_many"
)

// MetricsHook observes backend calls. Implementations must be goroutine-safe.
type MetricsHook interface {
	ObserveCall(op string, elapsed time.Duration, err error)
	ObserveBytes(op string, bytes int64)
}

// NoopMetrics is used when no hook is provided.
type NoopMetrics struct{}

func (NoopMetrics) ObserveCall(string, time.Duration, error) {}
func (NoopMetrics) ObserveBytes(string, int64)               {}

// Instrument wraps c so every call is reported to hook.
func Instrument(c Client, hook MetricsHook) Client {
	if hook == nil {
		hook = NoopMetrics{}
	}
	return &instrumented{inner: c, hook: hook}
}

type instrumented struct {
	inner Client
	hook  MetricsHook
}

func (i *instrumented) Bucket() string { return i.inner.Bucket() }

func (i *instrumented) List(ctx context.Context, prefix, pageToken string) (Page, error) {
	start := time.Now()
	p, err := i.inner.List(ctx, prefix, pageToken)
	i.hook.ObserveCall(OpList, time.Since(start), err)
	return p, err
}

func (i *instrumented) GetRange(ctx context.Context, key string, from int64) (io.ReadCloser, error) {
	start := time.Now()
	rc, err := i.inner.GetRange(ctx, key, from)
	i.hook.ObserveCall(OpGetRange, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return &countingReader{ReadCloser: rc, hook: i.hook}, nil
}

func (i *instrumented) HeadSize(ctx context.Context, key string) (int64, error) {
	start := time.Now()
	n, err := i.inner.HeadSize(ctx, key)
	i.hook.ObserveCall(OpHeadSize, time.Since(start), err)
	return n, err
}

func (i *instrumented) Put(ctx context.Context, key string, body io.Reader, size int64) error {
	start := time.Now()
	err := i.inner.Put(ctx, key, body, size)
	i.hook.ObserveCall(OpPut, time.Since(start), err)
	if err == nil {
		i.hook.ObserveBytes(OpPut, size)
	}
	return err
}

func (i *instrumented) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := i.inner.Delete(ctx, key)
	i.hook.ObserveCall(OpDelete, time.Since(start), err)
	return err
}

func (i *instrumented) DeleteMany(ctx context.Context, keys []string) ([]DeleteResult, error) {
	start := time.Now()
	res, err := i.inner.DeleteMany(ctx, keys)
	if err == nil {
		err = JoinDeleteErrors(res)
		i.hook.ObserveCall(OpDeleteMany, time.Since(start), err)
		return res, nil
	}
	i.hook.ObserveCall(OpDeleteMany, time.Since(start), err)
	return res, err
}

func (i *instrumented) Close() error { return i.inner.Close() }

// countingReader reports bytes served from a ranged stream when it is closed.
type countingReader struct {
	io.ReadCloser
	hook MetricsHook
	n    int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.ReadCloser.Read(p)
	c.n += int64(n)
	return n, err
}

func (c *countingReader) Close() error {
	c.hook.ObserveBytes(OpGetRange, c.n)
	return c.ReadCloser.Close()
}

package segment

import (
	"context"
	"fmt"
	"io"

	"github.com/rzbill/segstore/internal/objstore"
)

type readerState int

const (
	stateUnopened readerState = iota
	stateOpen
	stateClosed
)

// Reader presents an immutable remote object as a seekable byte stream.
//
// The object length is probed once on first use and never re-read: segment
// objects are write-once. Every seek closes the current ranged stream and
// issues a new ranged GET from the target offset to the end of the object.
//
// A Reader is single-owner and must not be used from multiple goroutines.
type Reader struct {
	ctx    context.Context
	client objstore.Client
	key    string

	state  readerState
	length int64
	pos    int64
	stream io.ReadCloser
}

var _ io.ReadSeekCloser = (*Reader)(nil)

// NewReader returns an unopened reader over key. No request is issued until
// Open, Read, Seek or Length is called. ctx bounds every request the reader makes.
func NewReader(ctx context.Context, client objstore.Client, key string) *Reader {
	return &Reader{ctx: ctx, client: client, key: key}
}

// Key returns the object key being read.
func (r *Reader) Key() string { return r.key }

// Open probes the object length. Calling Open on an open reader is a no-op.
func (r *Reader) Open() error {
	switch r.state {
	case stateOpen:
		return nil
	case stateClosed:
		return ErrReaderClosed
	}
	n, err := r.client.HeadSize(r.ctx, r.key)
	if err != nil {
		return err
	}
	r.length = n
	r.state = stateOpen
	return nil
}

// Length returns the fixed object length.
func (r *Reader) Length() (int64, error) {
	if err := r.Open(); err != nil {
		return 0, err
	}
	return r.length, nil
}

// Tell returns the current absolute position without side effects.
func (r *Reader) Tell() int64 { return r.pos }

// Seek moves to an absolute position and reopens the ranged stream there. The
// target must land on a readable byte: 0 <= p < length.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	if err := r.Open(); err != nil {
		return r.pos, err
	}
	var p int64
	switch whence {
	case io.SeekStart:
		p = offset
	case io.SeekCurrent:
		p = r.pos + offset
	case io.SeekEnd:
		p = r.length + offset
	default:
		return r.pos, fmt.Errorf("%w: whence %d", ErrInvalidSeek, whence)
	}
	if p < 0 || p >= r.length {
		return r.pos, fmt.Errorf("%w: %d not in [0, %d) for %q", ErrInvalidSeek, p, r.length, r.key)
	}
	r.pos = p
	if err := r.reopen(); err != nil {
		return r.pos, err
	}
	return r.pos, nil
}

// Read reads from the current position, opening a ranged stream if none is
// live. It returns io.EOF once the object is exhausted.
func (r *Reader) Read(p []byte) (int, error) {
	if err := r.Open(); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	if r.pos >= r.length {
		return 0, io.EOF
	}
	if r.stream == nil {
		if err := r.reopen(); err != nil {
			return 0, err
		}
	}
	n, err := r.stream.Read(p)
	r.pos += int64(n)
	if err == io.EOF {
		if r.pos < r.length {
			return n, fmt.Errorf("read %q: stream ended at %d of %d: %w", r.key, r.pos, r.length, io.ErrUnexpectedEOF)
		}
		return n, io.EOF
	}
	if err != nil {
		return n, objstore.Unavailable("read", r.key, err)
	}
	return n, nil
}

// Close releases the live stream. It is safe to call more than once.
func (r *Reader) Close() error {
	if r.state == stateClosed {
		return nil
	}
	r.state = stateClosed
	return r.closeStream()
}

func (r *Reader) reopen() error {
	if err := r.closeStream(); err != nil {
		return err
	}
	rc, err := r.client.GetRange(r.ctx, r.key, r.pos)
	if err != nil {
		return err
	}
	r.stream = rc
	return nil
}

func (r *Reader) closeStream() error {
	if r.stream == nil {
		return nil
	}
	err := r.stream.Close()
	r.stream = nil
	return err
}

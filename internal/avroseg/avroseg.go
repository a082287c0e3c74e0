// Package avroseg inspects segment files, which are Avro object container
// files. The archive itself treats segment bytes as opaque; this package backs
// the operator tooling that uploads and dumps segments.
package avroseg

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/hamba/avro/v2/ocf"
)

// syncSize is the length of the container sync marker.
const syncSize = 16

// ErrNotContainer is returned for input that is not an Avro object container.
var ErrNotContainer = errors.New("not an avro object container file")

// Stats summarises a container file.
type Stats struct {
	// Count is the number of records.
	Count int64
	// Blocks is the number of data blocks.
	Blocks int
	// LastBlockOffset is the byte offset at which the final block starts. A
	// reader positioned here can decode the last block without the earlier ones.
	// For a file without blocks it equals Size.
	LastBlockOffset int64
	// Size is the total file length.
	Size int64
	// Schema is the writer schema embedded in the header.
	Schema string
}

// Stat reads the whole container from r.
func Stat(r io.Reader) (Stats, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Stats{}, err
	}
	dec, err := ocf.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return Stats{}, fmt.Errorf("%w: %w", ErrNotContainer, err)
	}
	st := Stats{Size: int64(len(data)), Schema: string(dec.Metadata()["avro.schema"])}
	for dec.HasNext() {
		var v any
		if err := dec.Decode(&v); err != nil {
			return Stats{}, fmt.Errorf("decode record %d: %w", st.Count, err)
		}
		st.Count++
	}
	if err := dec.Error(); err != nil {
		return Stats{}, err
	}
	st.Blocks, st.LastBlockOffset = locateLastBlock(data)
	return st, nil
}

// locateLastBlock finds the start of the final block. Every block, and the
// header, is terminated by the same sync marker, so the final block begins
// right after the second to last occurrence of the marker.
func locateLastBlock(data []byte) (int, int64) {
	if len(data) < syncSize {
		return 0, int64(len(data))
	}
	marker := data[len(data)-syncSize:]
	body := data[:len(data)-syncSize]
	prev := bytes.LastIndex(body, marker)
	if prev < 0 {
		return 0, int64(len(data))
	}
	return bytes.Count(body, marker), int64(prev + syncSize)
}

// Decode streams every record in r to fn. Records are decoded generically:
// Avro records arrive as map[string]any.
func Decode(r io.Reader, fn func(any) error) error {
	dec, err := ocf.NewDecoder(r)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotContainer, err)
	}
	for dec.HasNext() {
		var v any
		if err := dec.Decode(&v); err != nil {
			return err
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return dec.Error()
}

// Package segment maps a topic's immutable log segments onto object storage.
//
// # Overview
//
// Each segment is one object. Keys are laid out as
//
//	{topic}/{from}_{count}_{lastBlockOffset}_{position}.avro
//
// where from is the millisecond UTC start time (2021-04-21T05:47:10.694Z),
// count the number of messages, lastBlockOffset the byte offset of the final
// block and position the engine's opaque token for the first message. The
// topic may contain '/'; the filename is always what follows the last '/'.
// The reserved {topic}/metadata/ sub-path belongs to package metadata.
//
// API surface (internal)
//
//	idx, _ := segment.List(ctx, client, "orders/eu")
//	h, ok := idx.Floor(tsMs)          // segment that may contain tsMs
//	r, _ := h.Open(ctx)               // seekable ranged reader
//	_, _ = r.Seek(h.LastBlockOffset(), io.SeekStart)
//	defer r.Close()
//
//	next := segment.NewHandle(client, "orders/eu", segment.Name{...}, 0)
//	_ = next.Upload(ctx, "/tmp/staged.avro")
//
// An Index is a snapshot built fresh by every List call. Listing follows every
// continuation token, skips zero-length placeholders and metadata entries, and
// fails on the first malformed key instead of hiding it.
package segment

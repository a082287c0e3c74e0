// Package archive is the surface a log engine uses to publish and discover
// sealed segments in object storage.
//
// An Archive is bound to one bucket. Topic reconstructs a topic handle from a
// bare name; each Topic lists its segments, exposes its metadata store, and
// seals or deletes segments. Listings may be throttled with
// Options.ListingMinInterval, in which case calls made within the interval
// return the previous snapshot.
//
//	a := archive.New(client, archive.Options{Logger: logger})
//	t, _ := a.Topic("orders/eu")
//	h, _ := t.Seal(ctx, segment.Name{FromMs: ms, Count: 100, LastBlockOffset: 343, FirstPosition: "1"}, "/tmp/seg.avro")
//	idx, _ := t.Segments(ctx)
package archive

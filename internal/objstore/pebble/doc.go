// Package pebblestore is a local objstore.Client backed by Pebble, with an
// explicit fsync policy. It serves development and single-node setups where no
// object storage service is available.
//
// Usage:
//
//	st, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "./data",
//	    Bucket:  "segments",
//	    Fsync:   pebblestore.FsyncModeInterval,
//	})
//	if err != nil { /* handle */ }
//	defer st.Close()
//
//	_ = st.Put(ctx, "orders/2021-04-21T05:47:10.694Z_100_343_1.avro", f, size)
//	page, _ := st.List(ctx, "orders/", "")
//
// Each object is stored whole under the key "obj/{key}". Listing iterates the
// key range in order and uses the last returned key as the continuation token.
package pebblestore

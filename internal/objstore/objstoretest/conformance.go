// Package objstoretest holds a behavioral test suite shared by every
// objstore.Client backend.
package objstoretest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/segstore/internal/objstore"
)

// Run exercises c under a fresh prefix. The backend's page size should be
// small (2 or 3) so that pagination is covered.
func Run(t *testing.T, c objstore.Client, prefix string) {
	t.Helper()
	ctx := context.Background()

	put := func(t *testing.T, key, val string) {
		t.Helper()
		require.NoError(t, c.Put(ctx, key, bytes.NewReader([]byte(val)), int64(len(val))))
	}

	t.Run("PutHeadGetRange", func(t *testing.T) {
		key := prefix + "obj"
		put(t, key, "0123456789")

		n, err := c.HeadSize(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(10), n)

		for _, start := range []int64{0, 3, 9} {
			rc, err := c.GetRange(ctx, key, start)
			require.NoError(t, err)
			b, err := io.ReadAll(rc)
			require.NoError(t, err)
			require.NoError(t, rc.Close())
			assert.Equal(t, "0123456789"[start:], string(b), "start %d", start)
		}

		put(t, key, "replaced")
		n, err = c.HeadSize(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(8), n)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := c.HeadSize(ctx, prefix+"missing")
		assert.ErrorIs(t, err, objstore.ErrNotFound)
		_, err = c.GetRange(ctx, prefix+"missing", 0)
		assert.ErrorIs(t, err, objstore.ErrNotFound)
		assert.NoError(t, c.Delete(ctx, prefix+"missing"))
	})

	t.Run("ListPaginated", func(t *testing.T) {
		dir := prefix + "list/"
		var want []string
		for i := 0; i < 7; i++ {
			k := fmt.Sprintf("%sk%02d", dir, i)
			put(t, k, "v")
			want = append(want, k)
		}
		put(t, prefix+"listing-sibling", "v")

		all, err := objstore.ListAll(ctx, c, dir)
		require.NoError(t, err)
		got := make([]string, 0, len(all))
		for _, o := range all {
			got = append(got, o.Key)
			assert.Equal(t, int64(1), o.Size)
		}
		assert.Equal(t, want, got)
	})

	t.Run("DeleteMany", func(t *testing.T) {
		dir := prefix + "del/"
		keys := []string{dir + "a", dir + "b", dir + "c"}
		for _, k := range keys {
			put(t, k, "x")
		}
		res, err := c.DeleteMany(ctx, append(keys, dir+"absent"))
		require.NoError(t, err)
		require.NoError(t, objstore.JoinDeleteErrors(res))

		all, err := objstore.ListAll(ctx, c, dir)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

package metadata

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/segstore/internal/objstore"
	"github.com/rzbill/segstore/internal/objstore/memory"
	"github.com/rzbill/segstore/internal/segment"
)

func TestEscapeRoundTrip(t *testing.T) {
	keys := []string{".", "..", "...", "", "a/b", "k!#$%&()=?", "with space", "%", "%2E", "+", "ünïcode", "a.b", "a*b", "~user", "%2A", "*~"}
	seen := map[string]string{}
	for _, k := range keys {
		esc := Escape(k)
		assert.NotContains(t, esc, "/", "key %q", k)
		assert.NotEqual(t, ".", esc)
		assert.NotEqual(t, "..", esc)
		assert.NotEmpty(t, esc)
		if prev, dup := seen[esc]; dup {
			t.Fatalf("keys %q and %q both escape to %q", prev, k, esc)
		}
		seen[esc] = k

		back, err := Unescape(esc)
		require.NoError(t, err)
		assert.Equal(t, k, back)
	}
}

func TestEscapeForms(t *testing.T) {
	assert.Equal(t, "%2E", Escape("."))
	assert.Equal(t, "%2E%2E", Escape(".."))
	assert.Equal(t, "a%2Fb", Escape("a/b"))
	assert.Equal(t, "with+space", Escape("with space"))
	assert.Equal(t, "%25", Escape("%"))
	assert.Equal(t, "a*b", Escape("a*b"))
	assert.Equal(t, "%7Euser", Escape("~user"))
	assert.Equal(t, "%252A", Escape("%2A"))
	assert.Equal(t, "caf%C3%A9", Escape("café"))
}

func TestUnescapeMalformed(t *testing.T) {
	for _, s := range []string{"%zz", "abc%", "%4"} {
		_, err := Unescape(s)
		assert.ErrorIs(t, err, segment.ErrMalformedKey, "segment %q", s)
	}
}

func TestStoreCRUD(t *testing.T) {
	ctx := context.Background()
	client := memory.New(memory.Options{PageSize: 2})
	s := New(client, "orders/eu")
	assert.Equal(t, "orders/eu", s.Topic())

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, err = s.Get(ctx, "a/b")
	assert.ErrorIs(t, err, objstore.ErrNotFound)

	for _, k := range []string{"z", "a/b", "..", "", "k!#$%&()=?"} {
		same, err := s.Put(ctx, k, []byte("v:"+k))
		require.NoError(t, err)
		assert.Same(t, s, same)
	}
	_, err = s.Put(ctx, "empty-value", nil)
	require.NoError(t, err)

	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"z", "a/b", "..", "", "k!#$%&()=?", "empty-value"}, keys)
	assert.True(t, sortedStrings(keys))

	v, err := s.Get(ctx, "a/b")
	require.NoError(t, err)
	assert.Equal(t, "v:a/b", string(v))

	v, err = s.Get(ctx, "empty-value")
	require.NoError(t, err)
	assert.Empty(t, v)

	_, err = s.Put(ctx, "z", []byte("replaced"))
	require.NoError(t, err)
	after, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Len(t, after, len(keys), "overwrite must not add a key")
	v, err = s.Get(ctx, "z")
	require.NoError(t, err)
	assert.Equal(t, "replaced", string(v))

	_, err = s.Remove(ctx, "a/b")
	require.NoError(t, err)
	_, err = s.Remove(ctx, "a/b")
	require.NoError(t, err)
	_, err = s.Get(ctx, "a/b")
	assert.ErrorIs(t, err, objstore.ErrNotFound)
}

func TestKeysSkipsPlaceholdersAndNested(t *testing.T) {
	ctx := context.Background()
	client := memory.New(memory.Options{})
	put := func(key string) {
		require.NoError(t, client.Put(ctx, key, bytes.NewReader(nil), 0))
	}
	put("t/metadata/")
	put("t/metadata/nested/deeper")
	put("t/metadata/ok")
	put("t/2021-04-21T05:47:10.694Z_1_0_p.avro")

	keys, err := New(client, "t").Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, keys)
}

func TestStoreBackendFailure(t *testing.T) {
	ctx := context.Background()
	client := memory.New(memory.Options{})
	s := New(client, "t")
	client.Fail("t/metadata/k", errors.New("boom"))

	_, err := s.Put(ctx, "k", []byte("v"))
	assert.ErrorIs(t, err, objstore.ErrBackendUnavailable)
	_, err = s.Remove(ctx, "k")
	assert.ErrorIs(t, err, objstore.ErrBackendUnavailable)
}

func sortedStrings(s []string) bool {
	for i := 1; i < len(s); i++ {
		if strings.Compare(s[i-1], s[i]) > 0 {
			return false
		}
	}
	return true
}

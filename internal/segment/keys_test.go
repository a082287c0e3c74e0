package segment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nestedTopic = "abc/123/something/20210421054707/20210421054707"

func TestParseNameVector(t *testing.T) {
	n, err := ParseName("2021-04-21T05:47:10.694Z_100_343_1.avro")
	require.NoError(t, err)
	assert.Equal(t, Name{FromMs: 1618984030694, Count: 100, LastBlockOffset: 343, FirstPosition: "1"}, n)
	assert.Equal(t, "2021-04-21T05:47:10.694Z", n.From().Format(TimestampLayout))
}

func TestSplitUsesLastSeparator(t *testing.T) {
	filename := "2021-04-21T05:47:10.694Z_100_343_1.avro"
	key := EncodeKey(nestedTopic, filename)

	topic, err := DecodeTopic(key)
	require.NoError(t, err)
	assert.Equal(t, nestedTopic, topic)

	got, err := DecodeFilename(key)
	require.NoError(t, err)
	assert.Equal(t, filename, got)

	topic, n, err := ParseKey(key)
	require.NoError(t, err)
	assert.Equal(t, nestedTopic, topic)
	assert.Equal(t, int64(100), n.Count)
}

func TestMalformedKeys(t *testing.T) {
	for _, key := range []string{"", "noseparator.avro", "/file.avro", "topic/"} {
		_, err := DecodeTopic(key)
		assert.ErrorIs(t, err, ErrMalformedKey, "key %q", key)
		_, err = DecodeFilename(key)
		assert.ErrorIs(t, err, ErrMalformedKey, "key %q", key)
	}
}

func TestMalformedFilenames(t *testing.T) {
	cases := map[string]error{
		"2021-04-21T05:47:10.694Z_100_343.avro":     ErrMalformedFilename,
		"2021-04-21T05:47:10.694Z_x_343_1.avro":     ErrMalformedFilename,
		"2021-04-21T05:47:10.694Z_100_-1_1.avro":    ErrMalformedFilename,
		"2021-04-21T05:47:10.694Z_100_343_1.json":   ErrMalformedFilename,
		"2021-04-21T05:47:10.694Z_100_343_.avro":    ErrMalformedFilename,
		"2021-04-21T05:47:10Z_100_343_1.avro":       ErrMalformedTimestamp,
		"2021-04-21 05:47:10.694_100_343_1.avro":    ErrMalformedTimestamp,
		"2021-04-21T05:47:10.694+01:00_1_2_3.avro": ErrMalformedTimestamp,
	}
	for filename, want := range cases {
		n, err := ParseName(filename)
		assert.ErrorIs(t, err, want, "filename %q", filename)
		assert.Equal(t, Name{}, n, "no partial parse for %q", filename)
	}
}

func TestPositionMayContainUnderscore(t *testing.T) {
	n, err := ParseName("2021-04-21T05:47:10.694Z_1_0_pos_with_underscores.avro")
	require.NoError(t, err)
	assert.Equal(t, "pos_with_underscores", n.FirstPosition)
}

func TestNameFilenameRoundTrip(t *testing.T) {
	n := Name{FromMs: 1618984030694, Count: 7, LastBlockOffset: 4096, FirstPosition: "01HV3Q"}
	require.NoError(t, n.Validate())
	back, err := ParseName(n.Filename())
	require.NoError(t, err)
	assert.Equal(t, n, back)
}

func TestNameValidateRejects(t *testing.T) {
	bad := []Name{
		{FromMs: 1, Count: -1, FirstPosition: "p"},
		{FromMs: 1, LastBlockOffset: -1, FirstPosition: "p"},
		{FromMs: 1, FirstPosition: ""},
		{FromMs: 1, FirstPosition: "a/b"},
	}
	for _, n := range bad {
		err := n.Validate()
		if !errors.Is(err, ErrMalformedFilename) {
			t.Fatalf("Validate(%+v) = %v, want ErrMalformedFilename", n, err)
		}
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	ms, err := ParseTimestamp("1970-01-01T00:00:00.001Z")
	require.NoError(t, err)
	assert.Equal(t, int64(1), ms)
	assert.Equal(t, "1970-01-01T00:00:00.001Z", FormatTimestamp(ms))
}

func TestPrefixes(t *testing.T) {
	assert.Equal(t, "a/b/", TopicPrefix("a/b"))
	assert.Equal(t, "a/b/metadata/", MetadataPrefix("a/b"))
	assert.Equal(t, "metadata", MetadataDir())
}

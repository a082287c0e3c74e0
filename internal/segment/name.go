package segment

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Extension is the filename suffix of every segment object.
const Extension = ".avro"

// TimestampLayout is the millisecond ISO-8601 UTC form used in filenames.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

var filenamePattern = regexp.MustCompile(`^(?P<from>[^_]+)_(?P<count>[0-9]+)_(?P<lastBlockOffset>[0-9]+)_(?P<position>.+)\.avro$`)

var (
	groupFrom     = filenamePattern.SubexpIndex("from")
	groupCount    = filenamePattern.SubexpIndex("count")
	groupLastBlk  = filenamePattern.SubexpIndex("lastBlockOffset")
	groupPosition = filenamePattern.SubexpIndex("position")
)

// Name is the decoded form of a segment filename.
type Name struct {
	// FromMs is the inclusive lower-bound timestamp of the first message, in
	// Unix milliseconds.
	FromMs int64
	// Count is the number of messages in the segment.
	Count int64
	// LastBlockOffset is the byte offset of the last self-contained block.
	LastBlockOffset int64
	// FirstPosition is the engine's opaque position token of the first message.
	FirstPosition string
}

// From returns FromMs as a UTC time.
func (n Name) From() time.Time { return time.UnixMilli(n.FromMs).UTC() }

// Filename encodes n back into the segment filename grammar.
func (n Name) Filename() string {
	return FormatTimestamp(n.FromMs) + "_" +
		strconv.FormatInt(n.Count, 10) + "_" +
		strconv.FormatInt(n.LastBlockOffset, 10) + "_" +
		n.FirstPosition + Extension
}

// Validate reports whether n can be encoded into a filename that parses back
// to the same value.
func (n Name) Validate() error {
	if n.Count < 0 || n.LastBlockOffset < 0 {
		return fmt.Errorf("%w: negative count or offset", ErrMalformedFilename)
	}
	if n.FirstPosition == "" || strings.Contains(n.FirstPosition, sep) {
		return fmt.Errorf("%w: first position %q", ErrMalformedFilename, n.FirstPosition)
	}
	back, err := ParseName(n.Filename())
	if err != nil {
		return err
	}
	if back != n {
		return fmt.Errorf("%w: %q does not round-trip", ErrMalformedFilename, n.Filename())
	}
	return nil
}

// ParseName decodes a segment filename. It never returns a partially filled Name.
func ParseName(filename string) (Name, error) {
	m := filenamePattern.FindStringSubmatch(filename)
	if m == nil {
		return Name{}, fmt.Errorf("%w: %q", ErrMalformedFilename, filename)
	}
	from, err := ParseTimestamp(m[groupFrom])
	if err != nil {
		return Name{}, err
	}
	count, err := strconv.ParseInt(m[groupCount], 10, 64)
	if err != nil {
		return Name{}, fmt.Errorf("%w: count in %q: %w", ErrMalformedFilename, filename, err)
	}
	lastBlock, err := strconv.ParseInt(m[groupLastBlk], 10, 64)
	if err != nil {
		return Name{}, fmt.Errorf("%w: last block offset in %q: %w", ErrMalformedFilename, filename, err)
	}
	return Name{
		FromMs:          from,
		Count:           count,
		LastBlockOffset: lastBlock,
		FirstPosition:   m[groupPosition],
	}, nil
}

// ParseTimestamp parses the fixed millisecond UTC layout into Unix milliseconds.
func ParseTimestamp(s string) (int64, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
	}
	return t.UnixMilli(), nil
}

// FormatTimestamp renders Unix milliseconds in the filename layout.
func FormatTimestamp(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(TimestampLayout)
}

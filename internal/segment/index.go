package segment

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rzbill/segstore/internal/objstore"
)

// Index is an immutable snapshot of a topic's segments ordered ascending by
// start timestamp. Start timestamps are unique.
type Index struct {
	topic   string
	handles []*Handle
}

// List builds a fresh index for topic. The whole listing is followed to the
// last page before any entry is decoded; a single malformed key fails the call.
func List(ctx context.Context, client objstore.Client, topic string) (*Index, error) {
	prefix := TopicPrefix(topic)
	objects, err := objstore.ListAll(ctx, client, prefix)
	if err != nil {
		return nil, err
	}
	handles := make([]*Handle, 0, len(objects))
	for _, o := range objects {
		if !isSegmentObject(prefix, o) {
			continue
		}
		h, err := HandleFromKey(client, o.Key, o.Size)
		if err != nil {
			return nil, fmt.Errorf("list %q: %w", topic, err)
		}
		handles = append(handles, h)
	}
	return newIndex(topic, handles)
}

// isSegmentObject filters out metadata entries and zero-length placeholders.
// Every other object under prefix is a segment, including those of a nested
// topic; skipping them would hide a corrupt key from the caller.
func isSegmentObject(prefix string, o objstore.Object) bool {
	if o.Size <= 0 {
		return false
	}
	rest := strings.TrimPrefix(o.Key, prefix)
	if rest == o.Key || rest == "" {
		return false
	}
	if strings.HasPrefix(rest, metadataDir+sep) {
		return false
	}
	// metadata entry of a nested topic: <child>/metadata/<name>
	if i := strings.LastIndex(rest, sep); i >= 0 {
		return !strings.HasSuffix(rest[:i], sep+metadataDir)
	}
	return true
}

func newIndex(topic string, handles []*Handle) (*Index, error) {
	sort.SliceStable(handles, func(i, j int) bool {
		return handles[i].name.FromMs < handles[j].name.FromMs
	})
	for i := 1; i < len(handles); i++ {
		if handles[i].name.FromMs == handles[i-1].name.FromMs {
			return nil, fmt.Errorf("%w: %q and %q both start at %s", ErrDuplicateTimestamp,
				handles[i-1].key, handles[i].key, FormatTimestamp(handles[i].name.FromMs))
		}
	}
	return &Index{topic: topic, handles: handles}, nil
}

// Topic returns the topic the snapshot was taken for.
func (x *Index) Topic() string { return x.topic }

// Len returns the number of segments.
func (x *Index) Len() int { return len(x.handles) }

// Handles returns the segments in ascending start order. The slice is a copy.
func (x *Index) Handles() []*Handle {
	return append([]*Handle(nil), x.handles...)
}

// Timestamps returns the start timestamps in ascending order.
func (x *Index) Timestamps() []int64 {
	out := make([]int64, len(x.handles))
	for i, h := range x.handles {
		out[i] = h.name.FromMs
	}
	return out
}

// search returns the first index whose start is >= fromMs.
func (x *Index) search(fromMs int64) int {
	return sort.Search(len(x.handles), func(i int) bool { return x.handles[i].name.FromMs >= fromMs })
}

// Get returns the segment starting exactly at fromMs.
func (x *Index) Get(fromMs int64) (*Handle, bool) {
	i := x.search(fromMs)
	if i < len(x.handles) && x.handles[i].name.FromMs == fromMs {
		return x.handles[i], true
	}
	return nil, false
}

// First returns the oldest segment.
func (x *Index) First() (*Handle, bool) {
	if len(x.handles) == 0 {
		return nil, false
	}
	return x.handles[0], true
}

// Last returns the newest segment.
func (x *Index) Last() (*Handle, bool) {
	if len(x.handles) == 0 {
		return nil, false
	}
	return x.handles[len(x.handles)-1], true
}

// Floor returns the segment with the greatest start <= tsMs, i.e. the segment
// that may contain a message written at tsMs.
func (x *Index) Floor(tsMs int64) (*Handle, bool) {
	i := x.search(tsMs)
	if i < len(x.handles) && x.handles[i].name.FromMs == tsMs {
		return x.handles[i], true
	}
	if i == 0 {
		return nil, false
	}
	return x.handles[i-1], true
}

// Ceiling returns the segment with the smallest start >= tsMs.
func (x *Index) Ceiling(tsMs int64) (*Handle, bool) {
	i := x.search(tsMs)
	if i == len(x.handles) {
		return nil, false
	}
	return x.handles[i], true
}

// Range returns the segments whose start lies in [fromMs, toMs).
func (x *Index) Range(fromMs, toMs int64) []*Handle {
	lo, hi := x.search(fromMs), x.search(toMs)
	if lo >= hi {
		return nil
	}
	return append([]*Handle(nil), x.handles[lo:hi]...)
}

// Filter returns the segments accepted by f, in order.
func (x *Index) Filter(f Filter) []*Handle {
	out := make([]*Handle, 0, len(x.handles))
	for _, h := range x.handles {
		if f.Eval(h) {
			out = append(out, h)
		}
	}
	return out
}

package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rzbill/segstore/internal/metadata"
	"github.com/rzbill/segstore/internal/metrics"
	"github.com/rzbill/segstore/internal/objstore"
	"github.com/rzbill/segstore/internal/segment"
	logpkg "github.com/rzbill/segstore/pkg/log"
)

// ErrInvalidTopic is returned for names that cannot address a topic.
var ErrInvalidTopic = errors.New("invalid topic name")

// Options configures an Archive.
type Options struct {
	Logger logpkg.Logger
	// ListingMinInterval throttles Topic.Segments. Zero lists on every call.
	ListingMinInterval time.Duration
	// StagingDir, when set, receives a private copy of a segment before it is
	// uploaded so the caller may reuse its local file immediately.
	StagingDir string
	Metrics    *metrics.Archive
}

// Archive publishes segments for every topic of one bucket.
type Archive struct {
	client objstore.Client
	opts   Options
	logger logpkg.Logger
	now    func() time.Time

	mu        sync.Mutex
	snapshots map[string]snapshot
}

type snapshot struct {
	index *segment.Index
	at    time.Time
}

// New returns an Archive over client.
func New(client objstore.Client, opts Options) *Archive {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	return &Archive{
		client:    client,
		opts:      opts,
		logger:    logger.WithComponent("archive"),
		now:       time.Now,
		snapshots: make(map[string]snapshot),
	}
}

// Bucket returns the bucket the archive writes to.
func (a *Archive) Bucket() string { return a.client.Bucket() }

// Client returns the underlying object storage client.
func (a *Archive) Client() objstore.Client { return a.client }

// Topic returns a handle for name. Only the name is validated; the topic
// exists remotely once its first segment is sealed.
func (a *Archive) Topic(name string) (*Topic, error) {
	if err := validateTopic(name); err != nil {
		return nil, err
	}
	return &Topic{archive: a, name: name}, nil
}

func validateTopic(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidTopic)
	}
	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return fmt.Errorf("%w: %q has a leading or trailing separator", ErrInvalidTopic, name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" {
			return fmt.Errorf("%w: %q has an empty path element", ErrInvalidTopic, name)
		}
		if part == segment.MetadataDir() {
			return fmt.Errorf("%w: %q uses the reserved element %q", ErrInvalidTopic, name, part)
		}
	}
	return nil
}

// CheckHealth issues one list call against the bucket root.
func (a *Archive) CheckHealth(ctx context.Context) error {
	if _, err := a.client.List(ctx, "", ""); err != nil {
		a.logger.Warn("health check failed", logpkg.Err(err))
		return err
	}
	return nil
}

func (a *Archive) cached(topic string) (*segment.Index, bool) {
	if a.opts.ListingMinInterval <= 0 {
		return nil, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.snapshots[topic]
	if !ok || a.now().Sub(s.at) >= a.opts.ListingMinInterval {
		return nil, false
	}
	return s.index, true
}

func (a *Archive) remember(topic string, idx *segment.Index) {
	if a.opts.ListingMinInterval <= 0 {
		return
	}
	a.mu.Lock()
	a.snapshots[topic] = snapshot{index: idx, at: a.now()}
	a.mu.Unlock()
}

func (a *Archive) forget(topic string) {
	a.mu.Lock()
	delete(a.snapshots, topic)
	a.mu.Unlock()
}

func (a *Archive) observeListing(throttled bool) {
	if a.opts.Metrics != nil {
		a.opts.Metrics.ObserveListing(throttled)
	}
}

// Topic addresses the segments and metadata of one topic.
type Topic struct {
	archive *Archive
	name    string
}

// Name returns the topic name.
func (t *Topic) Name() string { return t.name }

// Segments returns the topic's segments ordered by start timestamp.
func (t *Topic) Segments(ctx context.Context) (*segment.Index, error) {
	a := t.archive
	if idx, ok := a.cached(t.name); ok {
		a.observeListing(true)
		a.logger.Debug("listing throttled", logpkg.Topic(t.name), logpkg.Int("segments", idx.Len()))
		return idx, nil
	}
	idx, err := segment.List(ctx, a.client, t.name)
	if err != nil {
		a.logger.WithContext(ctx).Error("list segments failed", logpkg.Topic(t.name), logpkg.Err(err))
		return nil, err
	}
	a.remember(t.name, idx)
	a.observeListing(false)
	a.logger.Debug("listed segments", logpkg.Topic(t.name), logpkg.Int("segments", idx.Len()))
	return idx, nil
}

// Metadata returns the topic's metadata store.
func (t *Topic) Metadata() *metadata.Store {
	return metadata.New(t.archive.client, t.name)
}

// NewSegment returns a handle for a segment that has not been uploaded yet.
func (t *Topic) NewSegment(name segment.Name) *segment.Handle {
	return segment.NewHandle(t.archive.client, t.name, name, 0)
}

// Seal uploads the finished segment file at localPath under name. A segment
// with the same start timestamp must not already exist.
func (t *Topic) Seal(ctx context.Context, name segment.Name, localPath string) (*segment.Handle, error) {
	a := t.archive
	if err := name.Validate(); err != nil {
		return nil, err
	}
	idx, err := segment.List(ctx, a.client, t.name)
	if err != nil {
		return nil, err
	}
	if existing, ok := idx.Get(name.FromMs); ok {
		return nil, fmt.Errorf("%w: %s already holds %s", segment.ErrDuplicateTimestamp, existing.Key(), segment.FormatTimestamp(name.FromMs))
	}

	src := localPath
	if a.opts.StagingDir != "" {
		staged, err := stage(a.opts.StagingDir, localPath)
		if err != nil {
			return nil, err
		}
		defer os.Remove(staged)
		src = staged
	}

	h := t.NewSegment(name)
	start := a.now()
	if err := h.Upload(ctx, src); err != nil {
		a.logger.WithContext(ctx).Error("seal failed", logpkg.Key(h.Key()), logpkg.Err(err))
		return nil, err
	}
	a.forget(t.name)
	if a.opts.Metrics != nil {
		a.opts.Metrics.ObserveSeal(h.Size())
	}
	a.logger.WithContext(ctx).Info("sealed segment",
		logpkg.Key(h.Key()),
		logpkg.Int64("bytes", h.Size()),
		logpkg.Int64("count", name.Count),
		logpkg.Dur("took", a.now().Sub(start)))
	return h, nil
}

// stage copies localPath into dir under a unique name.
func stage(dir, localPath string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("staging dir: %w", err)
	}
	in, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer in.Close()
	path := filepath.Join(dir, uuid.NewString()+filepath.Ext(localPath))
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(path)
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// DeleteSegments removes handles in one bulk request. When some keys fail the
// error wraps objstore.ErrDeleteFailed and names each of them.
func (t *Topic) DeleteSegments(ctx context.Context, handles []*segment.Handle) error {
	if len(handles) == 0 {
		return nil
	}
	a := t.archive
	keys := make([]string, len(handles))
	for i, h := range handles {
		keys[i] = h.Key()
	}
	results, err := a.client.DeleteMany(ctx, keys)
	a.forget(t.name)
	if err != nil {
		a.logger.WithContext(ctx).Error("delete segments failed", logpkg.Topic(t.name), logpkg.Err(err))
		return err
	}
	deleted := 0
	for _, r := range results {
		if r.Err == nil {
			deleted++
		}
	}
	if a.opts.Metrics != nil {
		a.opts.Metrics.ObserveDelete(deleted)
	}
	if err := objstore.JoinDeleteErrors(results); err != nil {
		a.logger.WithContext(ctx).Warn("partial delete", logpkg.Topic(t.name), logpkg.Int("deleted", deleted), logpkg.Int("failed", len(results)-deleted))
		return err
	}
	a.logger.WithContext(ctx).Info("deleted segments", logpkg.Topic(t.name), logpkg.Int("deleted", deleted))
	return nil
}

package admin

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/rzbill/segstore/internal/archive"
	"github.com/rzbill/segstore/internal/runtime"
	"github.com/rzbill/segstore/internal/segment"
)

// OpenFunc opens the runtime the commands operate on.
type OpenFunc func(ctx context.Context) (*runtime.Runtime, error)

// withTopic opens the runtime, resolves --topic and runs fn.
func withTopic(cmd *cobra.Command, open OpenFunc, fn func(*runtime.Runtime, *archive.Topic) error) error {
	name, _ := cmd.Flags().GetString("topic")
	rt, err := open(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()
	t, err := rt.Archive().Topic(name)
	if err != nil {
		return err
	}
	return fn(rt, t)
}

// parseTime accepts Unix milliseconds, RFC3339 or the segment filename
// timestamp form.
func parseTime(s string) (int64, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	if ms, err := segment.ParseTimestamp(s); err == nil {
		return ms, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UnixMilli(), nil
	}
	return 0, fmt.Errorf("invalid time %q; expected ms, RFC3339 or %s", s, segment.TimestampLayout)
}

// timeFlag reads and parses a time flag.
func timeFlag(cmd *cobra.Command, name string) (int64, error) {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return 0, fmt.Errorf("--%s is required", name)
	}
	return parseTime(v)
}

func addTopicFlag(cmd *cobra.Command) {
	cmd.Flags().String("topic", "", "Topic name")
	_ = cmd.MarkFlagRequired("topic")
}

package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rzbill/segstore/internal/archive"
	"github.com/rzbill/segstore/internal/avroseg"
	"github.com/rzbill/segstore/internal/runtime"
	"github.com/rzbill/segstore/internal/segment"
	"github.com/rzbill/segstore/pkg/id"
)

// NewSegmentsCommand constructs the `segments` command group.
func NewSegmentsCommand(open OpenFunc) *cobra.Command {
	segCmd := &cobra.Command{Use: "segments", Short: "Segment operations"}
	segCmd.AddCommand(
		newSegmentsListCommand(open),
		newSegmentsCatCommand(open),
		newSegmentsDumpCommand(open),
		newSegmentsUploadCommand(open),
		newSegmentsDeleteCommand(open),
	)
	return segCmd
}

func newSegmentsListCommand(open OpenFunc) *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the segments of a topic",
		RunE: func(cmd *cobra.Command, _ []string) error {
			expr, _ := cmd.Flags().GetString("filter")
			asJSON, _ := cmd.Flags().GetBool("json")
			filter, err := segment.NewFilter(expr)
			if err != nil {
				return err
			}
			return withTopic(cmd, open, func(_ *runtime.Runtime, t *archive.Topic) error {
				idx, err := t.Segments(cmd.Context())
				if err != nil {
					return err
				}
				handles := idx.Filter(filter)
				out := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(out)
					for _, h := range handles {
						n := h.Name()
						if err := enc.Encode(map[string]any{
							"key": h.Key(), "fromMs": n.FromMs, "count": n.Count,
							"lastBlockOffset": n.LastBlockOffset, "firstPosition": n.FirstPosition, "size": h.Size(),
						}); err != nil {
							return err
						}
					}
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "FROM\tCOUNT\tLAST_BLOCK\tPOSITION\tSIZE")
				for _, h := range handles {
					n := h.Name()
					fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%d\n", segment.FormatTimestamp(n.FromMs), n.Count, n.LastBlockOffset, n.FirstPosition, h.Size())
				}
				return tw.Flush()
			})
		},
	}
	addTopicFlag(listCmd)
	listCmd.Flags().String("filter", "", "CEL filter over from_ms, count, last_block_offset, size, position, key, now_ms")
	listCmd.Flags().Bool("json", false, "Print one JSON object per segment")
	return listCmd
}

// openSegment resolves --from to a segment reader.
func openSegment(cmd *cobra.Command, t *archive.Topic) (*segment.Reader, error) {
	from, err := timeFlag(cmd, "from")
	if err != nil {
		return nil, err
	}
	idx, err := t.Segments(cmd.Context())
	if err != nil {
		return nil, err
	}
	h, ok := idx.Get(from)
	if !ok {
		return nil, fmt.Errorf("topic %s has no segment starting at %s", t.Name(), segment.FormatTimestamp(from))
	}
	return h.Open(cmd.Context())
}

func newSegmentsCatCommand(open OpenFunc) *cobra.Command {
	catCmd := &cobra.Command{
		Use:   "cat",
		Short: "Write raw segment bytes to stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			offset, _ := cmd.Flags().GetInt64("offset")
			limit, _ := cmd.Flags().GetInt64("limit")
			return withTopic(cmd, open, func(_ *runtime.Runtime, t *archive.Topic) error {
				r, err := openSegment(cmd, t)
				if err != nil {
					return err
				}
				defer r.Close()
				if offset > 0 {
					if _, err := r.Seek(offset, io.SeekStart); err != nil {
						return err
					}
				}
				var src io.Reader = r
				if limit > 0 {
					src = io.LimitReader(r, limit)
				}
				_, err = io.Copy(cmd.OutOrStdout(), src)
				return err
			})
		},
	}
	addTopicFlag(catCmd)
	catCmd.Flags().String("from", "", "Start timestamp of the segment")
	catCmd.Flags().Int64("offset", 0, "Byte offset to start from")
	catCmd.Flags().Int64("limit", 0, "Maximum bytes to write (0 = all)")
	return catCmd
}

func newSegmentsDumpCommand(open OpenFunc) *cobra.Command {
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Decode the Avro records of a segment as JSON lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return withTopic(cmd, open, func(_ *runtime.Runtime, t *archive.Topic) error {
				r, err := openSegment(cmd, t)
				if err != nil {
					return err
				}
				defer r.Close()
				enc := json.NewEncoder(cmd.OutOrStdout())
				n := 0
				err = avroseg.Decode(r, func(v any) error {
					if limit > 0 && n >= limit {
						return errStop
					}
					n++
					return enc.Encode(v)
				})
				if errors.Is(err, errStop) {
					return nil
				}
				return err
			})
		},
	}
	addTopicFlag(dumpCmd)
	dumpCmd.Flags().String("from", "", "Start timestamp of the segment")
	dumpCmd.Flags().Int("limit", 0, "Maximum records to print (0 = all)")
	return dumpCmd
}

var errStop = errors.New("stop")

func newSegmentsUploadCommand(open OpenFunc) *cobra.Command {
	uploadCmd := &cobra.Command{
		Use:   "upload",
		Short: "Seal a local Avro segment file into a topic",
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, _ := cmd.Flags().GetString("file")
			count, _ := cmd.Flags().GetInt64("count")
			lastBlock, _ := cmd.Flags().GetInt64("last-block-offset")
			position, _ := cmd.Flags().GetString("position")
			fromStr, _ := cmd.Flags().GetString("from")

			from := time.Now().UnixMilli()
			if fromStr != "" {
				ms, err := parseTime(fromStr)
				if err != nil {
					return err
				}
				from = ms
			}
			if count < 0 || lastBlock < 0 {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				st, err := avroseg.Stat(f)
				f.Close()
				if err != nil {
					return fmt.Errorf("%s: %w; pass --count and --last-block-offset for non-Avro files", file, err)
				}
				if count < 0 {
					count = st.Count
				}
				if lastBlock < 0 {
					lastBlock = st.LastBlockOffset
				}
			}
			if position == "" {
				position = id.New().String()
			}
			name := segment.Name{FromMs: from, Count: count, LastBlockOffset: lastBlock, FirstPosition: position}
			return withTopic(cmd, open, func(_ *runtime.Runtime, t *archive.Topic) error {
				h, err := t.Seal(cmd.Context(), name, file)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "sealed %s (%d bytes)\n", h.Key(), h.Size())
				return nil
			})
		},
	}
	addTopicFlag(uploadCmd)
	uploadCmd.Flags().String("file", "", "Local segment file")
	_ = uploadCmd.MarkFlagRequired("file")
	uploadCmd.Flags().String("from", "", "Start timestamp (default now)")
	uploadCmd.Flags().Int64("count", -1, "Message count (default: read from the Avro file)")
	uploadCmd.Flags().Int64("last-block-offset", -1, "Offset of the last block (default: read from the Avro file)")
	uploadCmd.Flags().String("position", "", "First position token (default: a new sortable id)")
	return uploadCmd
}

func newSegmentsDeleteCommand(open OpenFunc) *cobra.Command {
	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete one segment (--from) or every segment older than --before",
		RunE: func(cmd *cobra.Command, _ []string) error {
			confirm, _ := cmd.Flags().GetBool("confirm")
			fromStr, _ := cmd.Flags().GetString("from")
			beforeStr, _ := cmd.Flags().GetString("before")
			if (fromStr == "") == (beforeStr == "") {
				return fmt.Errorf("exactly one of --from or --before is required")
			}
			if !confirm {
				return fmt.Errorf("refusing to delete without --confirm")
			}
			return withTopic(cmd, open, func(_ *runtime.Runtime, t *archive.Topic) error {
				idx, err := t.Segments(cmd.Context())
				if err != nil {
					return err
				}
				var victims []*segment.Handle
				if fromStr != "" {
					from, err := parseTime(fromStr)
					if err != nil {
						return err
					}
					if h, ok := idx.Get(from); ok {
						victims = append(victims, h)
					}
				} else {
					before, err := parseTime(beforeStr)
					if err != nil {
						return err
					}
					victims = idx.Range(math.MinInt64, before)
				}
				if err := t.DeleteSegments(cmd.Context(), victims); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d segment(s)\n", len(victims))
				return nil
			})
		},
	}
	addTopicFlag(deleteCmd)
	deleteCmd.Flags().String("from", "", "Start timestamp of the segment to delete")
	deleteCmd.Flags().String("before", "", "Delete segments starting before this time")
	deleteCmd.Flags().Bool("confirm", false, "Confirm deletion")
	return deleteCmd
}

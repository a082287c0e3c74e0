package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rzbill/segstore/internal/archive"
	"github.com/rzbill/segstore/internal/runtime"
	"github.com/rzbill/segstore/internal/segment"
	logpkg "github.com/rzbill/segstore/pkg/log"
)

// SegmentsController serves segment listings and ranged segment reads.
type SegmentsController struct {
	rt     *runtime.Runtime
	logger logpkg.Logger
}

// NewSegmentsController creates a new segments controller.
func NewSegmentsController(rt *runtime.Runtime, logger logpkg.Logger) *SegmentsController {
	return &SegmentsController{rt: rt, logger: logger}
}

// RegisterRoutes registers /segments and /segments/raw.
func (c *SegmentsController) RegisterRoutes(r chi.Router) {
	r.Get("/segments", c.handleList)
	r.Get("/segments/raw", c.handleRaw)
}

type segmentView struct {
	Key             string `json:"key"`
	From            string `json:"from"`
	FromMs          int64  `json:"fromMs"`
	Count           int64  `json:"count"`
	LastBlockOffset int64  `json:"lastBlockOffset"`
	FirstPosition   string `json:"firstPosition"`
	Size            int64  `json:"size"`
}

func viewOf(h *segment.Handle) segmentView {
	n := h.Name()
	return segmentView{
		Key:             h.Key(),
		From:            segment.FormatTimestamp(n.FromMs),
		FromMs:          n.FromMs,
		Count:           n.Count,
		LastBlockOffset: n.LastBlockOffset,
		FirstPosition:   n.FirstPosition,
		Size:            h.Size(),
	}
}

func (c *SegmentsController) topic(r *http.Request) (*archive.Topic, error) {
	return c.rt.Archive().Topic(r.URL.Query().Get("topic"))
}

// handleList returns the topic's segments, optionally narrowed by a CEL
// filter expression.
func (c *SegmentsController) handleList(w http.ResponseWriter, r *http.Request) {
	t, err := c.topic(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	filter, err := segment.NewFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	idx, err := t.Segments(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	handles := idx.Filter(filter)
	out := make([]segmentView, 0, len(handles))
	for _, h := range handles {
		out = append(out, viewOf(h))
	}
	writeJSON(w, map[string]any{"topic": t.Name(), "bucket": c.rt.Archive().Bucket(), "segments": out})
}

// handleRaw streams the bytes of the segment starting at from (ms), beginning
// at offset and bounded by limit when given.
func (c *SegmentsController) handleRaw(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	t, err := c.topic(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	from, err := strconv.ParseInt(q.Get("from"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "from must be a millisecond timestamp")
		return
	}
	offset, ok := parseInt64(q.Get("offset"), 0)
	if !ok {
		writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}
	limit, ok := parseInt64(q.Get("limit"), -1)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}

	idx, err := t.Segments(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	h, found := idx.Get(from)
	if !found {
		writeError(w, http.StatusNotFound, "no segment starts at "+segment.FormatTimestamp(from))
		return
	}
	rd, err := h.Open(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	defer rd.Close()

	length, err := rd.Length()
	if err != nil {
		writeFailure(w, err)
		return
	}
	if offset > 0 {
		if _, err := rd.Seek(offset, io.SeekStart); err != nil {
			writeFailure(w, err)
			return
		}
	}
	n := length - offset
	if limit >= 0 && limit < n {
		n = limit
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(n, 10))
	w.Header().Set("X-Segment-Key", h.Key())
	if _, err := io.CopyN(w, rd, n); err != nil && !errors.Is(err, io.EOF) {
		c.logger.WithContext(r.Context()).Warn("raw segment read aborted", logpkg.Key(h.Key()), logpkg.Err(err))
	}
}

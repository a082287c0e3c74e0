package controllers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rzbill/segstore/internal/metadata"
	"github.com/rzbill/segstore/internal/runtime"
	logpkg "github.com/rzbill/segstore/pkg/log"
)

// maxMetadataBytes bounds PUT bodies.
const maxMetadataBytes = 1 << 20

// MetadataController serves the per-topic key/value store.
type MetadataController struct {
	rt     *runtime.Runtime
	logger logpkg.Logger
}

// NewMetadataController creates a new metadata controller.
func NewMetadataController(rt *runtime.Runtime, logger logpkg.Logger) *MetadataController {
	return &MetadataController{rt: rt, logger: logger}
}

// RegisterRoutes registers /metadata and /metadata/value.
func (c *MetadataController) RegisterRoutes(r chi.Router) {
	r.Get("/metadata", c.handleKeys)
	r.Get("/metadata/value", c.handleGet)
	r.Put("/metadata/value", c.handlePut)
	r.Delete("/metadata/value", c.handleDelete)
}

func (c *MetadataController) store(r *http.Request) (*metadata.Store, error) {
	t, err := c.rt.Archive().Topic(r.URL.Query().Get("topic"))
	if err != nil {
		return nil, err
	}
	return t.Metadata(), nil
}

// key returns the key query parameter. An empty key is valid, a missing one
// is not.
func key(w http.ResponseWriter, r *http.Request) (string, bool) {
	q := r.URL.Query()
	if !q.Has("key") {
		writeError(w, http.StatusBadRequest, "key is required")
		return "", false
	}
	return q.Get("key"), true
}

func (c *MetadataController) handleKeys(w http.ResponseWriter, r *http.Request) {
	s, err := c.store(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	keys, err := s.Keys(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, map[string]any{"topic": s.Topic(), "keys": keys})
}

func (c *MetadataController) handleGet(w http.ResponseWriter, r *http.Request) {
	s, err := c.store(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	k, ok := key(w, r)
	if !ok {
		return
	}
	v, err := s.Get(r.Context(), k)
	if err != nil {
		writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(v)
}

func (c *MetadataController) handlePut(w http.ResponseWriter, r *http.Request) {
	s, err := c.store(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	k, ok := key(w, r)
	if !ok {
		return
	}
	v, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMetadataBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	if _, err := s.Put(r.Context(), k, v); err != nil {
		writeFailure(w, err)
		return
	}
	c.logger.WithContext(r.Context()).Debug("metadata stored", logpkg.Topic(s.Topic()), logpkg.Str("name", k), logpkg.Int("bytes", len(v)))
	writeNoContent(w)
}

func (c *MetadataController) handleDelete(w http.ResponseWriter, r *http.Request) {
	s, err := c.store(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	k, ok := key(w, r)
	if !ok {
		return
	}
	if _, err := s.Remove(r.Context(), k); err != nil {
		writeFailure(w, err)
		return
	}
	writeNoContent(w)
}

// Package metrics exposes segstore's Prometheus collectors.
//
// A Registry owns a private prometheus.Registry. Object storage calls are
// observed through ObjectStore, which implements objstore.MetricsHook; archive
// level events (listing cache hits, sealed and deleted segments) through
// Archive. Handler serves the exposition format for /metrics.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rzbill/segstore/internal/objstore"
)

// Namespace prefixes every metric name.
const Namespace = "segstore"

// Options configures a Registry.
type Options struct {
	// Provider labels object storage metrics (s3, gcs, nats, pebble, memory).
	Provider string
	// IncludeRuntime registers the Go and process collectors.
	IncludeRuntime bool
}

// Registry groups every collector segstore registers.
type Registry struct {
	reg *prometheus.Registry

	ObjectStore *ObjectStore
	Archive     *Archive
}

// NewRegistry creates collectors and registers them on a fresh registry.
func NewRegistry(opts Options) *Registry {
	reg := prometheus.NewRegistry()
	if opts.IncludeRuntime {
		reg.MustRegister(collectors.NewGoCollector())
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	r := &Registry{
		reg:         reg,
		ObjectStore: newObjectStore(opts.Provider),
		Archive:     newArchive(),
	}
	r.ObjectStore.register(reg)
	r.Archive.register(reg)
	return r
}

// Handler serves the registry in Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Prometheus returns the underlying registry.
func (r *Registry) Prometheus() *prometheus.Registry { return r.reg }

// ObjectStore observes backend calls.
type ObjectStore struct {
	provider string

	Calls   *prometheus.CounterVec
	Errors  *prometheus.CounterVec
	Latency *prometheus.HistogramVec
	Bytes   *prometheus.CounterVec
}

var _ objstore.MetricsHook = (*ObjectStore)(nil)

func newObjectStore(provider string) *ObjectStore {
	if provider == "" {
		provider = "unknown"
	}
	labels := []string{"provider", "op"}
	return &ObjectStore{
		provider: provider,
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "objstore", Name: "requests_total",
			Help: "Object storage requests by operation.",
		}, labels),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "objstore", Name: "errors_total",
			Help: "Failed object storage requests by operation and class.",
		}, append(labels, "class")),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace, Subsystem: "objstore", Name: "request_duration_seconds",
			Help:    "Object storage request latency.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, labels),
		Bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "objstore", Name: "bytes_total",
			Help: "Bytes uploaded (put) and downloaded (get_range).",
		}, labels),
	}
}

func (m *ObjectStore) register(reg prometheus.Registerer) {
	reg.MustRegister(m.Calls, m.Errors, m.Latency, m.Bytes)
}

// ObserveCall records one request.
func (m *ObjectStore) ObserveCall(op string, elapsed time.Duration, err error) {
	m.Calls.WithLabelValues(m.provider, op).Inc()
	m.Latency.WithLabelValues(m.provider, op).Observe(elapsed.Seconds())
	if err != nil {
		m.Errors.WithLabelValues(m.provider, op, errorClass(err)).Inc()
	}
}

// ObserveBytes records transferred payload bytes.
func (m *ObjectStore) ObserveBytes(op string, n int64) {
	if n > 0 {
		m.Bytes.WithLabelValues(m.provider, op).Add(float64(n))
	}
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, objstore.ErrNotFound):
		return "not_found"
	case errors.Is(err, objstore.ErrDeleteFailed):
		return "delete_failed"
	case errors.Is(err, objstore.ErrBackendUnavailable):
		return "unavailable"
	default:
		return "other"
	}
}

// Archive observes topic-level events.
type Archive struct {
	Listings        *prometheus.CounterVec
	SegmentsSealed  prometheus.Counter
	SegmentsDeleted prometheus.Counter
	SealedBytes     prometheus.Counter
}

func newArchive() *Archive {
	return &Archive{
		Listings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "archive", Name: "listings_total",
			Help: "Segment listings by result (fresh or throttled).",
		}, []string{"result"}),
		SegmentsSealed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "archive", Name: "segments_sealed_total",
			Help: "Segments uploaded.",
		}),
		SegmentsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "archive", Name: "segments_deleted_total",
			Help: "Segments removed.",
		}),
		SealedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "archive", Name: "sealed_bytes_total",
			Help: "Bytes of segments uploaded.",
		}),
	}
}

func (m *Archive) register(reg prometheus.Registerer) {
	reg.MustRegister(m.Listings, m.SegmentsSealed, m.SegmentsDeleted, m.SealedBytes)
}

// ObserveListing records a listing served fresh (throttled=false) or from the
// previous snapshot.
func (m *Archive) ObserveListing(throttled bool) {
	if throttled {
		m.Listings.WithLabelValues("throttled").Inc()
		return
	}
	m.Listings.WithLabelValues("fresh").Inc()
}

// ObserveSeal records an uploaded segment.
func (m *Archive) ObserveSeal(size int64) {
	m.SegmentsSealed.Inc()
	m.SealedBytes.Add(float64(size))
}

// ObserveDelete records removed segments.
func (m *Archive) ObserveDelete(n int) {
	m.SegmentsDeleted.Add(float64(n))
}

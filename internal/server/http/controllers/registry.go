package controllers

import (
	"github.com/go-chi/chi/v5"

	"github.com/rzbill/segstore/internal/runtime"
	logpkg "github.com/rzbill/segstore/pkg/log"
)

// ControllerRegistry manages all HTTP controllers.
type ControllerRegistry struct {
	general  *GeneralController
	segments *SegmentsController
	metadata *MetadataController
}

// NewControllerRegistry creates a new controller registry over rt.
func NewControllerRegistry(rt *runtime.Runtime, logger logpkg.Logger) *ControllerRegistry {
	return &ControllerRegistry{
		general:  NewGeneralController(rt),
		segments: NewSegmentsController(rt, logger),
		metadata: NewMetadataController(rt, logger),
	}
}

// RegisterAllRoutes registers all controller routes under /v1.
func (r *ControllerRegistry) RegisterAllRoutes(router chi.Router) {
	router.Route("/v1", func(v1 chi.Router) {
		r.general.RegisterRoutes(v1)
		r.segments.RegisterRoutes(v1)
		r.metadata.RegisterRoutes(v1)
	})
}

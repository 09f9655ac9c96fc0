package gpu

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"

	"github.com/ktolnos/slurm-utils/internal/availability"
)

type Router struct {
	src    availability.Source
	th     availability.Thresholds
	logger *slog.Logger
	g      singleflight.Group
}

func NewRouter(src availability.Source, th availability.Thresholds, logger *slog.Logger) *Router {
	return &Router{
		src:    src,
		th:     th,
		logger: logger,
	}
}

func (rt *Router) Register(r *gin.Engine) {
	v1 := r.Group("/api/v1/")
	{
		g := v1.Group("/gpus")
		g.GET("/availability", rt.HandlerGetAvailability) // GET /api/v1/gpus/availability
		g.POST("/selection", rt.HandlerPostSelection)     // POST /api/v1/gpus/selection
	}
}

package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/DjordjeVuckovic/news-pulse/internal/breaker"
	"github.com/DjordjeVuckovic/news-pulse/internal/dto"
	"github.com/DjordjeVuckovic/news-pulse/pkg/server"
)

// BreakerSource exposes circuit states; both the news provider router and
// the AI router satisfy it.
type BreakerSource interface {
	Statuses() map[string]breaker.Status
}

type HealthRouter struct {
	e       *echo.Echo
	storage server.HealthChecker
	sources []BreakerSource
}

func NewHealthRouter(e *echo.Echo, storage server.HealthChecker, sources ...BreakerSource) *HealthRouter {
	return &HealthRouter{
		e:       e,
		storage: storage,
		sources: sources,
	}
}

func (r *HealthRouter) Bind() {
	r.e.GET("/api/health", r.healthHandler)
}

// healthHandler reports storage reachability and every circuit's state. The
// service stays "ok" with open circuits: serving stale feeds during provider
// outages is expected operation, not an outage of this service.
func (r *HealthRouter) healthHandler(c echo.Context) error {
	ctx := c.Request().Context()

	breakers := make(map[string]breaker.Status)
	for _, source := range r.sources {
		for key, status := range source.Statuses() {
			breakers[key] = status
		}
	}

	resp := dto.HealthResponse{
		Status:   "ok",
		Storage:  r.storage.Healthy(ctx),
		Breakers: breakers,
	}
	code := http.StatusOK
	if !resp.Storage {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}

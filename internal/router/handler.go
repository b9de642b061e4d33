package router

import (
	"context"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"codstore.dev/storefront/pkg/ai"
	"codstore.dev/storefront/pkg/auth"
	"codstore.dev/storefront/pkg/catalog"
	"codstore.dev/storefront/pkg/global"
	"codstore.dev/storefront/pkg/media"
	"codstore.dev/storefront/pkg/orders"
	"codstore.dev/storefront/pkg/settings"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type MediaStore interface {
	Upload(ctx context.Context, r io.Reader) (*media.Blob, error)
	URL(ctx context.Context, hash string) (*media.SignedURL, error)
}

// Services are the dependencies of the HTTP layer. Media and Reports may be
// nil when not configured.
type Services struct {
	Auth     *auth.Service
	Catalog  *catalog.Service
	Orders   *orders.Service
	Settings *settings.Service
	Media    MediaStore
	Stats    ai.StatsSource
	Reports  *ai.Reporter
	Health   map[string]Pinger
}

type Handler struct {
	Services
	cfg global.Config
}

func NewHandler(cfg global.Config, services Services) *Handler {
	return &Handler{Services: services, cfg: cfg}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "OK"}
	healthy := true
	for name, p := range h.Health {
		if err := p.Ping(ctx); err != nil {
			log.Printf("Warning: health check for %s failed: %v", name, err)
			status[name] = "Unavailable"
			healthy = false
			continue
		}
		status[name] = "Connected"
	}

	if !healthy {
		status["status"] = "Degraded"
		resp := global.ErrorResponse("Dependency check failed", nil)
		resp.Data = status
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(status))
}

// bindJSON binds the body into req and writes a 400 on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, bindError(err))
		return false
	}
	return true
}

// pageParams reads ?page and ?limit. Bounds are applied by the services.
func pageParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.Query("page"))
	limit, _ = strconv.Atoi(c.Query("limit"))
	return page, limit
}

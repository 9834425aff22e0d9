// Package server assembles the gin engine from handlers built elsewhere.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"calotrack/internal/shared/config"
	"calotrack/internal/shared/metrics"
	"calotrack/internal/shared/server/middleware"
	"calotrack/internal/shared/server/respond"
)

// RouteRegistrar is anything that can attach its routes to a group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps carries the handlers the router wires up.
type RouterDeps struct {
	Config            config.Config
	LogsHandler       RouteRegistrar
	AnalysisHandler   RouteRegistrar
	WaterHandler      RouteRegistrar
	SavedMealsHandler RouteRegistrar
	SessionHandler    RouteRegistrar
	GoogleAuth        RouteRegistrar
}

// NewRouter constructs the gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/metrics", metrics.Handler())

	for _, h := range []RouteRegistrar{
		deps.LogsHandler,
		deps.AnalysisHandler,
		deps.WaterHandler,
		deps.SavedMealsHandler,
		deps.SessionHandler,
		deps.GoogleAuth,
	} {
		if h != nil {
			h.RegisterRoutes(api)
		}
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}

package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harishghasolia07/NLogin-Devices/internal/app"
	"github.com/harishghasolia07/NLogin-Devices/internal/handlers"
	"github.com/harishghasolia07/NLogin-Devices/internal/middleware"
	"github.com/harishghasolia07/NLogin-Devices/internal/sessions"
)

// NewRouter builds the Gin engine, wires middleware and registers the
// service's wire surface.
func NewRouter(cfg *app.Config, svc *sessions.Service) (*gin.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if svc == nil {
		return nil, fmt.Errorf("session service must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowedOrigins))

	// Public status endpoints
	r.GET("/", handlers.Root())
	r.GET("/health", handlers.Health())

	sessionHandler := handlers.NewSessionHandler(svc)

	group := r.Group("/sessions")
	{
		group.POST("/login", sessionHandler.Login)
		group.POST("/logout", sessionHandler.Logout)
		group.POST("/force-logout", sessionHandler.ForceLogout)
		group.GET("/validate", sessionHandler.Validate)
		group.GET("/active", sessionHandler.ListActive)
	}

	// Metrics endpoint
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

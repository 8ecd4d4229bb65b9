package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/middleware"
)

// Settings holds what the router needs beyond the services.
type Settings struct {
	CORSOrigins []string
	// MediaRoot is served at MediaURL when images are stored on disk.
	MediaRoot string
	MediaURL  string
	Options   api.Options
}

// SetupRouter configures the middleware chain and the application routes.
func SetupRouter(
	db *gorm.DB,
	svc api.Services,
	settings Settings,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	log logrus.FieldLogger,
) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.Recovery(log),
		middleware.Metrics(m),
		middleware.CORS(settings.CORSOrigins),
	)

	router.GET("/health", api.HealthCheck(db))
	router.GET("/api/health", api.HealthCheck(db))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	if settings.MediaRoot != "" && settings.MediaURL != "" {
		router.Static(settings.MediaURL, settings.MediaRoot)
	}

	api.RegisterRoutes(router, svc, settings.Options, log)
	return router
}

package gateway

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bull/rag-gateway/internal/metrics"
)

// NewRouter builds the HTTP surface. The liveness endpoints (/ and
// /health) bypass auth and dependency checks entirely; /search is the
// only credential-gated route.
func NewRouter(svc *Service, m *metrics.Metrics, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), Observe(log, m))

	router.GET("/", svc.handleRoot)
	router.GET("/health", svc.handleHealth)
	router.HEAD("/health", svc.handleHealth)
	router.GET("/ready", svc.handleReady)
	router.POST("/search", svc.handleSearch)

	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	return router
}

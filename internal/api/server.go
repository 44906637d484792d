package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/logging"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/session"
)

// #region router

// Server adapts the session service to HTTP.
type Server struct {
	svc      *session.Service
	log      *slog.Logger
	gatherer prometheus.Gatherer
	started  time.Time
}

// NewServer builds the adapter. A nil gatherer serves the default registry.
func NewServer(svc *session.Service, logger *slog.Logger, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		svc:      svc,
		log:      logging.Component(logger, "api"),
		gatherer: gatherer,
		started:  time.Now(),
	}
}

// Router returns the gin engine with every route mounted.
func (s *Server) Router() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLog())

	engine.GET("/healthz", s.health)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := engine.Group("/v1")
	sessions := v1.Group("/sessions")
	{
		sessions.POST("", s.createSession)
		sessions.GET("/:id", s.getSession)
		sessions.POST("/:id/turns", s.processTurn)
		sessions.GET("/:id/stages", s.detectStages)
		sessions.GET("/:id/versions", s.listVersions)
		sessions.POST("/:id/end", s.endSession)
		sessions.POST("/:id/directive", s.setDirective)
		sessions.POST("/:id/regenerate", s.regenerate)
	}
	return engine
}

// requestLog replaces gin.Logger with a structured line per request.
func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

// #endregion router

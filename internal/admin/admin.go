// Package admin exposes a small HTTP surface over a running tunnel pool:
// health, pooled-tunnel status, on-demand eviction, and Prometheus metrics.
package admin

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/virtops/tunnelctl/internal/logging"
	"github.com/virtops/tunnelctl/internal/observability"
	"github.com/virtops/tunnelctl/internal/tunnel"
)

type Config struct {
	Service     string
	CorsOrigins []string
}

type Server struct {
	cfg       Config
	pool      *tunnel.Pool
	router    *gin.Engine
	startedAt time.Time
}

func New(cfg Config, pool *tunnel.Pool) *Server {
	if cfg.Service == "" {
		cfg.Service = "tunnelctl"
	}
	observability.RegisterMetrics()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if len(cfg.CorsOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CorsOrigins,
			AllowMethods: []string{"GET", "POST"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}

	s := &Server{cfg: cfg, pool: pool, router: router, startedAt: time.Now()}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": s.cfg.Service,
			"uptime":  time.Since(s.startedAt).String(),
		})
	})

	s.router.GET("/tunnels", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"tunnels": s.pool.Snapshot(),
		})
	})

	s.router.POST("/tunnels/kill", func(c *gin.Context) {
		var req struct {
			Hostname string   `json:"hostname"`
			Daemon   []string `json:"daemon"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Hostname == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "hostname required"})
			return
		}
		key := tunnel.NewKey(req.Hostname, req.Daemon)
		s.pool.Release(key)
		c.JSON(http.StatusOK, gin.H{"status": "released", "key": key.String()})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves the admin surface until the listener fails.
func (s *Server) Run(addr string) error {
	logging.Infof("admin.Server listening addr=%q service=%q", addr, s.cfg.Service)
	return s.router.Run(addr)
}

package http

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/charts"
	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/config"
	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/dashboard"
	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/mapview"
)

// Session is the dashboard state the web surface reads from.
type Session struct {
	Controller *dashboard.Controller
	Canvas     *mapview.Canvas
	Donut      *charts.Donut
	Trend      *charts.TrendLine
}

// Server bundles router and dependencies for the dashboard web surface.
type Server struct {
	cfg     config.Config
	session Session
	logger  *zap.Logger
	engine  *gin.Engine

	// instance keeps chart ETags from one process run from matching another.
	instance string
}

// New constructs a server with routes and middleware.
func New(cfg config.Config, session Session, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))
	engine.Use(corsMiddleware())
	engine.SetHTMLTemplate(template.Must(template.New("pages").Parse(pageTemplates)))

	server := &Server{cfg: cfg, session: session, logger: logger, engine: engine, instance: uuid.NewString()}
	server.registerRoutes()
	server.registerV1Routes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.logger.Info("dashboard listening", zap.String("addr", srv.Addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.engine.GET("/", s.handleIndex)
	s.engine.GET("/table", s.handleTable)

	chartsGroup := s.engine.Group("/charts")
	{
		chartsGroup.GET("", s.handleChartsPage)
		chartsGroup.GET("/distribution", s.handleDistributionChart)
		chartsGroup.GET("/trend", s.handleTrendChart)
	}
}

// requestLogger replaces gin.Logger with structured access logs.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request", fields...)
			return
		}
		logger.Debug("request", fields...)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func apiVersionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-API-Version", "v1")
		c.Next()
	}
}

// Package http serves the lake health REST API together with the health,
// readiness and metrics endpoints.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/lake-health-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const requestTimeout = 10 * time.Second

// Service is the engine surface the API exposes.
type Service interface {
	ListLakes(ctx context.Context) ([]domain.LakeSummary, error)
	ResolveLake(ctx context.Context, ref string) (domain.Lake, error)
	LatestReadings(ctx context.Context, lakeID string) ([]domain.SensorReading, error)
	CurrentScore(ctx context.Context, lakeID string) (domain.HealthScore, error)
	ScoreHistory(ctx context.Context, lakeID string, r domain.HistoryRange) ([]domain.HealthScore, error)
	Predictions(ctx context.Context, lakeID string) ([3]domain.Prediction, error)
	ComputeHealthScore(lakeID string, c domain.ScoreComponents, confidence float64) (domain.HealthScore, error)
	GeneratePredictions(lakeID string, currentScore int) ([3]domain.Prediction, error)
	Alerts(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, error)
	TransitionAlert(ctx context.Context, id string, action domain.AlertAction) (domain.Alert, error)
	SubmitReport(ctx context.Context, raw domain.RawReport) (domain.CitizenReport, error)
	Reports(ctx context.Context, filter domain.ReportFilter) ([]domain.CitizenReport, error)
}

// Server exposes the REST API plus /healthz, /readyz and /metrics.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	svc        Service
	logger     *slog.Logger
}

// NewServer builds the router. ready gates /readyz.
func NewServer(addr string, svc Service, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router: router,
		svc:    svc,
		logger: logger,
	}

	router.GET("/healthz", gin.WrapF(sharedobs.LivenessHandler()))
	router.GET("/readyz", gin.WrapF(sharedobs.ReadinessHandler(ready)))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.GET("/lakes", s.handleListLakes)
	api.GET("/lakes/:id", s.handleGetLake)
	api.GET("/lakes/:id/sensors", s.handleLakeSensors)
	api.GET("/lakes/:id/scores", s.handleScoreHistory)
	api.GET("/lakes/:id/scores/latest", s.handleLatestScore)
	api.GET("/lakes/:id/predictions", s.handleLakePredictions)
	api.POST("/scores", s.handleComputeScore)
	api.POST("/predictions", s.handleGeneratePredictions)
	api.GET("/alerts", s.handleListAlerts)
	api.POST("/alerts/:id/acknowledge", s.handleTransition(domain.ActionAcknowledge))
	api.POST("/alerts/:id/resolve", s.handleTransition(domain.ActionResolve))
	api.GET("/reports", s.handleListReports)
	api.POST("/reports", s.handleSubmitReport)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the router, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ReadinessChecks combines several checkers; the first failure wins.
type ReadinessChecks []sharedobs.ReadinessChecker

func (rc ReadinessChecks) CheckReadiness(ctx context.Context) error {
	for _, c := range rc {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// writeError maps domain errors onto status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidStateTransition):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// Package api exposes the fraud engine over HTTP: claim upload, on-demand
// analysis, claim and alert retrieval, and a websocket stream of alert
// events.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

// IntakeService runs uploaded documents through extraction, validation, and
// persistence.
type IntakeService interface {
	ExtractAndValidate(data []byte, format domain.Format) (*domain.ExtractedClaim, bool, []string)
	Register(ctx context.Context, extracted *domain.ExtractedClaim) (*domain.Claim, error)
}

// ClaimAnalyzer scores one persisted claim across all detection modules.
type ClaimAnalyzer interface {
	Analyze(ctx context.Context, claim *domain.Claim) (*domain.CompositeAnalysis, error)
}

// AlertLister pages through persisted fraud alerts.
type AlertLister interface {
	ListAlerts(ctx context.Context, status string, limit int) ([]*domain.FraudAlert, error)
}

// Server is the HTTP front end of the fraud engine.
type Server struct {
	intake   IntakeService
	analyzer ClaimAnalyzer
	claims   domain.ClaimStore
	alerts   AlertLister
	hub      *AlertHub
	log      *logrus.Logger
	router   *gin.Engine
	server   *http.Server
}

// NewServer wires the HTTP layer. The alert hub starts immediately so stream
// subscribers can connect before the first analysis runs.
func NewServer(
	intake IntakeService,
	analyzer ClaimAnalyzer,
	claims domain.ClaimStore,
	alerts AlertLister,
	cfg domain.LoggingConfig,
	logger *logrus.Logger,
) *Server {
	if cfg.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestIDMiddleware())

	s := &Server{
		intake:   intake,
		analyzer: analyzer,
		claims:   claims,
		alerts:   alerts,
		hub:      NewAlertHub(logger),
		log:      logger,
		router:   router,
	}
	s.setupRoutes()

	return s
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, cfg domain.ServerConfig) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithFields(logrus.Fields{"addr": addr}).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.hub.Close()
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/claims/upload", s.handleUpload)
		v1.POST("/claims/:id/analyze", s.handleAnalyze)
		v1.GET("/claims/:id", s.handleGetClaim)
		v1.GET("/alerts", s.handleListAlerts)
		v1.GET("/alerts/stream", s.handleAlertStream)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = fmt.Sprintf("%d", time.Now().UnixNano())
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

// Package http exposes transactions, categories, reports and exports as a JSON
// API built on gin.
package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"carteira/internal/log"
	"carteira/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Config holds the HTTP settings.
type Config struct {
	Addr               string
	CORSOrigins        []string
	RateLimitPerMinute int // zero disables rate limiting
	JWTSecret          string
}

// Services bundles the application services the handlers call.
type Services struct {
	Transactions *services.TransactionService
	Categories   *services.CategoryService
	Reports      *services.ReportService
}

// Server is an http.Server whose handler is the gin router.
type Server struct {
	http.Server

	txs     *services.TransactionService
	cats    *services.CategoryService
	reports *services.ReportService

	jwtSecret string
	limiter   *rateLimiter
	security  securityMetrics
	requests  int64
	started   time.Time
	logger    *log.Logger

	shutdownOnce sync.Once
}

// NewServer configures the middleware chain and routes, returning a ready-to-run server.
func NewServer(cfg Config, svc Services, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}

	s := &Server{
		txs:       svc.Transactions,
		cats:      svc.Categories,
		reports:   svc.Reports,
		jwtSecret: cfg.JWTSecret,
		started:   time.Now(),
		logger:    logger.WithComponent(log.ComponentHTTP),
	}
	if cfg.RateLimitPerMinute > 0 {
		s.limiter = newRateLimiter(cfg.RateLimitPerMinute)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.traceMiddleware(), s.securityMiddleware())
	if len(cfg.CORSOrigins) > 0 {
		engine.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition", requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	engine.Use(s.rateLimitMiddleware())

	engine.GET("/health", s.handleHealth)

	api := engine.Group("/api", s.authMiddleware())
	{
		api.GET("/transactions", s.handleListTransactions)
		api.POST("/transactions", s.handleCreateTransaction)
		api.GET("/transactions/:id", s.handleGetTransaction)
		api.PUT("/transactions/:id", s.handleUpdateTransaction)
		api.DELETE("/transactions/:id", s.handleDeleteTransaction)

		api.GET("/categories", s.handleListCategories)
		api.POST("/categories", s.handleCreateCategory)
		api.PUT("/categories/:id", s.handleUpdateCategory)
		api.DELETE("/categories/:id", s.handleDeleteCategory)

		api.GET("/reports/summary", s.handleSummary)
		api.GET("/reports/categories", s.handleCategoryRollup)
		api.GET("/reports/monthly", s.handleMonthly)

		api.GET("/export/transactions", s.handleExportTransactions)
		api.GET("/export/summary", s.handleExportSummary)
		api.GET("/export/categories", s.handleExportCategories)
	}

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":              "ok",
		"timestamp":           time.Now().UTC().Format(time.RFC3339),
		"uptime":              time.Since(s.started).Round(time.Second).String(),
		"requests":            atomic.LoadInt64(&s.requests),
		"rate_limit_hits":     atomic.LoadInt64(&s.security.rateLimitHits),
		"auth_failures":       atomic.LoadInt64(&s.security.authFailures),
		"suspicious_requests": atomic.LoadInt64(&s.security.suspiciousRequests),
	})
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

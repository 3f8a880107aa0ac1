// Package http exposes the budget commands and queries over a JSON API.
// It is a thin adapter: requests are decoded, the caller is resolved, and
// the application layer does the rest.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/event-budget/internal/application/port"
	"github.com/garyjia/event-budget/internal/application/service"
	"github.com/garyjia/event-budget/internal/application/workflow"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// IdentityHeader carries the authenticated user id set by the gateway
	IdentityHeader  string
	DefaultPageSize int
	MaxPageSize     int
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		IdentityHeader:  "X-User-ID",
		DefaultPageSize: 20,
		MaxPageSize:     100,
	}
}

// Services groups the application services the API calls into
type Services struct {
	Engine     workflow.BudgetEngine
	Expenses   service.ExpenseService
	Queries    service.BudgetQueryService
	Statistics service.StatisticsService
	Exports    service.ExportService
	Roles      port.RoleResolver
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, services Services, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	server := &Server{
		config:   config,
		router:   router,
		services: services,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := NewHandlers(s.services, s.config, s.logger)

	s.router.GET("/health", h.HealthCheck)

	ev := s.router.Group("/api/events/:eventId", h.resolveCaller)
	{
		ev.POST("/budgets", h.CreateBudget)
		ev.GET("/budgets", h.ListBudgetsForEvent)
		ev.GET("/departments/:departmentId/budgets", h.ListBudgetsForDepartment)
		ev.GET("/statistics", h.GetStatistics)
		ev.GET("/statistics/export", h.ExportStatistics)

		budget := ev.Group("/budgets/:budgetId")
		budget.GET("", h.GetBudget)
		budget.PUT("", h.UpdateBudgetDraft)
		budget.DELETE("", h.DeleteDraftBudget)
		budget.POST("/submit", h.transition(s.services.Engine.SubmitBudget))
		budget.POST("/recall", h.transition(s.services.Engine.RecallBudget))
		budget.POST("/approve", h.transition(s.services.Engine.ApproveBudget))
		budget.POST("/request-changes", h.transition(s.services.Engine.RequestChanges))
		budget.POST("/send-to-members", h.transition(s.services.Engine.SendToMembers))
		budget.POST("/lock", h.transition(s.services.Engine.LockBudget))
		budget.GET("/history", h.GetHistory)
		budget.GET("/export", h.ExportBudget)

		item := budget.Group("/items/:itemId")
		item.POST("/decision", h.DecideItem)
		item.PUT("/assignee", h.AssignItem)
		item.PATCH("/expense", h.ReportExpense)
		item.DELETE("/expense/evidence/:index", h.RemoveExpenseEvidence)
		item.POST("/expense/submit", h.itemCommand(s.services.Expenses.SubmitExpense))
		item.POST("/expense/undo-submit", h.itemCommand(s.services.Expenses.UndoSubmitExpense))
		item.POST("/paid", h.itemCommand(s.services.Expenses.TogglePaid))
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.httpServer = nil
	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

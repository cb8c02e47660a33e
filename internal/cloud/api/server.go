// Package api is the authoritative checkpoint service: operator
// authentication, the employee directory and the log of entries and exits.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"laptop-checkpoint/internal/cloud/config"
	"laptop-checkpoint/internal/cloud/models"
	"laptop-checkpoint/internal/cloud/sessions"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// EmployeeRepository is the directory storage the handlers need
type EmployeeRepository interface {
	List(ctx context.Context) ([]models.Employee, error)
	Search(ctx context.Context, q string) ([]models.Employee, error)
	ByDepartment(ctx context.Context, department string) ([]models.Employee, error)
	ActiveCount(ctx context.Context) (int64, error)
	Get(ctx context.Context, id string) (*models.Employee, error)
	Create(ctx context.Context, emp *models.Employee) error
	Update(ctx context.Context, emp *models.Employee) error
	SoftDelete(ctx context.Context, id string) error
}

// LogRepository is the log storage the handlers need
type LogRepository interface {
	Create(ctx context.Context, entry *models.LogEntry) error
	List(ctx context.Context) ([]models.LogEntry, error)
	Recent(ctx context.Context, limit int) ([]models.LogEntry, error)
	ByEmployee(ctx context.Context, employeeID string) ([]models.LogEntry, error)
	ByDevice(ctx context.Context, deviceID string) ([]models.LogEntry, error)
	ByAction(ctx context.Context, action string) ([]models.LogEntry, error)
	DateRange(ctx context.Context, start, end time.Time) ([]models.LogEntry, error)
	Get(ctx context.Context, id string) (*models.LogEntry, error)
	Stats(ctx context.Context, dayStart time.Time) (*models.LogStats, error)
	DeleteAll(ctx context.Context) error
	Delete(ctx context.Context, id string) error
}

// UserRepository is the operator account storage the handlers need
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	TouchLogin(ctx context.Context, id string) error
}

// Dependencies are the backends a Server is built on
type Dependencies struct {
	Employees EmployeeRepository
	Logs      LogRepository
	Users     UserRepository
	Sessions  sessions.Store
	// HealthCheck is optional; a failure turns /health into a 503
	HealthCheck func(ctx context.Context) error
}

func (d Dependencies) validate() error {
	switch {
	case d.Employees == nil:
		return errors.New("employee repository is required")
	case d.Logs == nil:
		return errors.New("log repository is required")
	case d.Users == nil:
		return errors.New("user repository is required")
	case d.Sessions == nil:
		return errors.New("session store is required")
	}
	return nil
}

// Server represents the HTTP API server
type Server struct {
	logger     *logrus.Logger
	router     *mux.Router
	handler    http.Handler
	httpServer *http.Server
	handlers   *Handlers
	tokens     *tokenIssuer
}

// NewServer creates a new API server instance
func NewServer(cfg *config.Config, deps Dependencies, logger *logrus.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}

	tokens := newTokenIssuer(cfg.Auth, deps.Sessions)

	server := &Server{
		logger: logger,
		router: mux.NewRouter(),
		tokens: tokens,
	}
	server.handlers = NewHandlers(deps, tokens, NewHub(logger), logger)

	server.setupMiddleware()
	server.setupRoutes()

	// CORS wraps the router so preflight requests are answered before routing
	server.handler = server.corsMiddleware(server.router)

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	return server, nil
}

// Handler exposes the routed handler, mainly for httptest
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub returns the live log feed
func (s *Server) Hub() *Hub {
	return s.handlers.hub
}

// Start serves until the context is cancelled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")

	s.handlers.hub.Start(ctx)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		return s.Shutdown()
	case err := <-errChan:
		s.handlers.hub.Stop()
		return fmt.Errorf("server error: %w", err)
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Gracefully shutting down API server")

	// Stop the feed first so websocket clients are closed before the listener
	s.handlers.hub.Stop()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.WithError(err).Error("Error during server shutdown")
		return err
	}

	s.logger.Info("API server shutdown complete")
	return nil
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)
}

// setupRoutes configures API routes. Fixed /logs paths are registered before
// /logs/{id} so mux does not treat them as ids.
func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	auth := s.router.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	auth.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	auth.HandleFunc("/refresh", h.Refresh).Methods(http.MethodPost)
	auth.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)

	logs := s.router.PathPrefix("/logs").Subrouter()
	logs.Use(s.authMiddleware)
	logs.HandleFunc("", h.CreateLog).Methods(http.MethodPost)
	logs.HandleFunc("", h.ListLogs).Methods(http.MethodGet)
	logs.HandleFunc("", h.DeleteAllLogs).Methods(http.MethodDelete)
	logs.HandleFunc("/ws", h.LogFeed).Methods(http.MethodGet)
	logs.HandleFunc("/recent", h.RecentLogs).Methods(http.MethodGet)
	logs.HandleFunc("/stats", h.LogStats).Methods(http.MethodGet)
	logs.HandleFunc("/date-range", h.LogsByDateRange).Methods(http.MethodGet)
	logs.HandleFunc("/employee/{id}", h.LogsByEmployee).Methods(http.MethodGet)
	logs.HandleFunc("/device/{id}", h.LogsByDevice).Methods(http.MethodGet)
	logs.HandleFunc("/action/{action}", h.LogsByAction).Methods(http.MethodGet)
	logs.HandleFunc("/{id}", h.GetLog).Methods(http.MethodGet)
	logs.HandleFunc("/{id}", h.DeleteLog).Methods(http.MethodDelete)

	employees := s.router.PathPrefix("/employees").Subrouter()
	employees.Use(s.authMiddleware)
	employees.HandleFunc("", h.ListEmployees).Methods(http.MethodGet)
	employees.HandleFunc("", h.CreateEmployee).Methods(http.MethodPost)
	employees.HandleFunc("/search", h.SearchEmployees).Methods(http.MethodGet)
	employees.HandleFunc("/count", h.CountEmployees).Methods(http.MethodGet)
	employees.HandleFunc("/department/{department}", h.EmployeesByDepartment).Methods(http.MethodGet)
	employees.HandleFunc("/{id}", h.GetEmployee).Methods(http.MethodGet)
	employees.HandleFunc("/{id}", h.UpdateEmployee).Methods(http.MethodPut)
	employees.HandleFunc("/{id}", h.DeleteEmployee).Methods(http.MethodDelete)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.writeErrorResponse(w, r, "Route not found", http.StatusNotFound, codeNotFound)
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.writeErrorResponse(w, r, "Method not allowed", http.StatusMethodNotAllowed, codeMethodNotAllowed)
	})
}

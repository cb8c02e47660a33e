package api

import (
	"context"
	"net/http"
	"time"

	"laptop-checkpoint/internal/cloud/sessions"
	"laptop-checkpoint/internal/logging"

	"github.com/sirupsen/logrus"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	logger      *logrus.Logger
	log         *logrus.Entry
	employees   EmployeeRepository
	logs        LogRepository
	users       UserRepository
	sessions    sessions.Store
	tokens      *tokenIssuer
	hub         *Hub
	healthCheck func(ctx context.Context) error
	now         func() time.Time
}

// NewHandlers creates a new handlers instance
func NewHandlers(deps Dependencies, tokens *tokenIssuer, hub *Hub, logger *logrus.Logger) *Handlers {
	return &Handlers{
		logger:      logger,
		log:         logging.NewServiceLogger(logger, "api"),
		employees:   deps.Employees,
		logs:        deps.Logs,
		users:       deps.Users,
		sessions:    deps.Sessions,
		tokens:      tokens,
		hub:         hub,
		healthCheck: deps.HealthCheck,
		now:         time.Now,
	}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status           string    `json:"status"`
	Timestamp        time.Time `json:"timestamp"`
	Version          string    `json:"version"`
	WebSocketClients int       `json:"websocketClients"`
	Error            string    `json:"error,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:           "healthy",
		Timestamp:        h.now().UTC(),
		Version:          logging.Version,
		WebSocketClients: h.hub.ConnectionCount(),
	}

	status := http.StatusOK
	if h.healthCheck != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := h.healthCheck(ctx); err != nil {
			logging.LogServiceError(h.logger, err, "api", "health")
			response.Status = "unhealthy"
			response.Error = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	h.writeJSONResponse(w, response, status)
}

// internalError logs a backend failure and answers 500
func (h *Handlers) internalError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	logging.LogStorageError(h.logger, err, operation)
	h.writeErrorResponse(w, r, "Internal server error", http.StatusInternalServerError, codeInternal)
}

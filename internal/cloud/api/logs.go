package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"laptop-checkpoint/internal/cloud/database"
	"laptop-checkpoint/internal/cloud/models"
	"laptop-checkpoint/internal/types"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 1000
)

// EventLogCreated is broadcast on the live feed for every stored entry
const EventLogCreated = "log.created"

// CreateLog handles POST /logs. An unknown employee and an invalid action are
// both answered with 404.
func (h *Handlers) CreateLog(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLogEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeErrorResponse(w, r, err.Error(), http.StatusBadRequest, codeBadRequest)
		return
	}

	if req.EmployeeID == "" {
		h.writeErrorResponse(w, r, "employeeId is required", http.StatusBadRequest, codeBadRequest)
		return
	}

	employee, err := h.employees.Get(r.Context(), req.EmployeeID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			h.writeErrorResponse(w, r, fmt.Sprintf("Employee with ID %s not found", req.EmployeeID), http.StatusNotFound, codeNotFound)
			return
		}
		h.internalError(w, r, err, "create_log")
		return
	}

	if !types.Action(req.Action).IsValid() {
		h.writeErrorResponse(w, r, "Action must be either 'entry' or 'exit'", http.StatusNotFound, codeNotFound)
		return
	}

	entry := &models.LogEntry{
		EmployeeID: req.EmployeeID,
		DeviceID:   req.DeviceID,
		Action:     req.Action,
	}
	if entry.DeviceID == "" {
		entry.DeviceID = req.EmployeeID
	}
	if req.Timestamp != nil {
		entry.Timestamp = *req.Timestamp
	} else {
		entry.Timestamp = h.now()
	}

	if err := h.logs.Create(r.Context(), entry); err != nil {
		h.internalError(w, r, err, "create_log")
		return
	}
	entry.Employee = employee

	h.log.WithFields(logrus.Fields{
		"log_id":      entry.ID,
		"employee_id": entry.EmployeeID,
		"action":      entry.Action,
	}).Info("Log entry created")

	h.hub.BroadcastEvent(EventLogCreated, entry)
	h.writeJSONResponse(w, entry, http.StatusCreated)
}

// ListLogs handles GET /logs
func (h *Handlers) ListLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := h.logs.List(r.Context())
	h.writeLogList(w, r, entries, err, "list_logs")
}

// RecentLogs handles GET /logs/recent?limit=
func (h *Handlers) RecentLogs(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxRecentLimit {
			h.writeErrorResponse(w, r, fmt.Sprintf("limit must be an integer between 1 and %d", maxRecentLimit), http.StatusBadRequest, codeBadRequest)
			return
		}
		limit = parsed
	}

	entries, err := h.logs.Recent(r.Context(), limit)
	h.writeLogList(w, r, entries, err, "recent_logs")
}

// LogStats handles GET /logs/stats. "Today" starts at the server's local midnight.
func (h *Handlers) LogStats(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	stats, err := h.logs.Stats(r.Context(), dayStart)
	if err != nil {
		h.internalError(w, r, err, "log_stats")
		return
	}

	h.writeJSONResponse(w, stats, http.StatusOK)
}

// LogsByDateRange handles GET /logs/date-range?startDate=&endDate=
func (h *Handlers) LogsByDateRange(w http.ResponseWriter, r *http.Request) {
	start, err := parseDate(r.URL.Query().Get("startDate"))
	if err != nil {
		h.writeErrorResponse(w, r, "startDate: "+err.Error(), http.StatusBadRequest, codeBadRequest)
		return
	}
	end, err := parseDate(r.URL.Query().Get("endDate"))
	if err != nil {
		h.writeErrorResponse(w, r, "endDate: "+err.Error(), http.StatusBadRequest, codeBadRequest)
		return
	}

	entries, err := h.logs.DateRange(r.Context(), start, end)
	h.writeLogList(w, r, entries, err, "logs_by_date_range")
}

// LogsByEmployee handles GET /logs/employee/{id}
func (h *Handlers) LogsByEmployee(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, err := h.employees.Get(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			h.writeErrorResponse(w, r, fmt.Sprintf("Employee with ID %s not found", id), http.StatusNotFound, codeNotFound)
			return
		}
		h.internalError(w, r, err, "logs_by_employee")
		return
	}

	entries, err := h.logs.ByEmployee(r.Context(), id)
	h.writeLogList(w, r, entries, err, "logs_by_employee")
}

// LogsByDevice handles GET /logs/device/{id}
func (h *Handlers) LogsByDevice(w http.ResponseWriter, r *http.Request) {
	entries, err := h.logs.ByDevice(r.Context(), mux.Vars(r)["id"])
	h.writeLogList(w, r, entries, err, "logs_by_device")
}

// LogsByAction handles GET /logs/action/{action}
func (h *Handlers) LogsByAction(w http.ResponseWriter, r *http.Request) {
	action := types.Action(mux.Vars(r)["action"])
	if !action.IsValid() {
		h.writeErrorResponse(w, r, "Action must be either 'entry' or 'exit'", http.StatusBadRequest, codeBadRequest)
		return
	}

	entries, err := h.logs.ByAction(r.Context(), string(action))
	h.writeLogList(w, r, entries, err, "logs_by_action")
}

// GetLog handles GET /logs/{id}
func (h *Handlers) GetLog(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	entry, err := h.logs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			h.writeErrorResponse(w, r, fmt.Sprintf("Log entry with ID %s not found", id), http.StatusNotFound, codeNotFound)
			return
		}
		h.internalError(w, r, err, "get_log")
		return
	}

	h.writeJSONResponse(w, entry, http.StatusOK)
}

// DeleteLog handles DELETE /logs/{id}
func (h *Handlers) DeleteLog(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.logs.Delete(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			h.writeErrorResponse(w, r, fmt.Sprintf("Log entry with ID %s not found", id), http.StatusNotFound, codeNotFound)
			return
		}
		h.internalError(w, r, err, "delete_log")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteAllLogs handles DELETE /logs
func (h *Handlers) DeleteAllLogs(w http.ResponseWriter, r *http.Request) {
	if err := h.logs.DeleteAll(r.Context()); err != nil {
		h.internalError(w, r, err, "delete_all_logs")
		return
	}

	fields := logrus.Fields{}
	if claims, ok := ClaimsFromContext(r.Context()); ok {
		fields["user_id"] = claims.Subject
	}
	h.log.WithFields(fields).Warn("All log entries deleted")

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) writeLogList(w http.ResponseWriter, r *http.Request, entries []models.LogEntry, err error, operation string) {
	if err != nil {
		h.internalError(w, r, err, operation)
		return
	}
	if entries == nil {
		entries = []models.LogEntry{}
	}
	h.writeJSONResponse(w, entries, http.StatusOK)
}

// parseDate accepts RFC 3339 timestamps and plain dates
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("is required")
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return time.Time{}, errors.New("must be an RFC 3339 timestamp or YYYY-MM-DD date")
	}
	return t, nil
}

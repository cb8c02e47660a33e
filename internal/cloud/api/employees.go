package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"laptop-checkpoint/internal/cloud/database"
	"laptop-checkpoint/internal/cloud/models"

	"github.com/gorilla/mux"
)

// ListEmployees handles GET /employees
func (h *Handlers) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.employees.List(r.Context())
	h.writeEmployeeList(w, r, employees, err, "list_employees")
}

// SearchEmployees handles GET /employees/search?q=
func (h *Handlers) SearchEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.employees.Search(r.Context(), r.URL.Query().Get("q"))
	h.writeEmployeeList(w, r, employees, err, "search_employees")
}

// EmployeesByDepartment handles GET /employees/department/{department}
func (h *Handlers) EmployeesByDepartment(w http.ResponseWriter, r *http.Request) {
	employees, err := h.employees.ByDepartment(r.Context(), mux.Vars(r)["department"])
	h.writeEmployeeList(w, r, employees, err, "employees_by_department")
}

// CountEmployees handles GET /employees/count
func (h *Handlers) CountEmployees(w http.ResponseWriter, r *http.Request) {
	count, err := h.employees.ActiveCount(r.Context())
	if err != nil {
		h.internalError(w, r, err, "count_employees")
		return
	}
	h.writeJSONResponse(w, map[string]int64{"activeCount": count}, http.StatusOK)
}

// GetEmployee handles GET /employees/{id}
func (h *Handlers) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	employee, err := h.employees.Get(r.Context(), id)
	if err != nil {
		h.employeeError(w, r, id, err, "get_employee")
		return
	}

	h.writeJSONResponse(w, employee, http.StatusOK)
}

// CreateEmployee handles POST /employees
func (h *Handlers) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req models.EmployeeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeErrorResponse(w, r, err.Error(), http.StatusBadRequest, codeBadRequest)
		return
	}

	req.ID = strings.TrimSpace(req.ID)
	req.Name = strings.TrimSpace(req.Name)
	if req.ID == "" || req.Name == "" {
		h.writeErrorResponse(w, r, "id and name are required", http.StatusBadRequest, codeBadRequest)
		return
	}

	employee := &models.Employee{
		ID:         req.ID,
		Name:       req.Name,
		Department: req.Department,
		Email:      req.Email,
		IsActive:   true,
	}
	if req.IsActive != nil {
		employee.IsActive = *req.IsActive
	}

	if err := h.employees.Create(r.Context(), employee); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			h.writeErrorResponse(w, r, fmt.Sprintf("Employee with ID %s already exists", req.ID), http.StatusConflict, codeConflict)
			return
		}
		h.internalError(w, r, err, "create_employee")
		return
	}

	h.log.WithField("employee_id", employee.ID).Info("Employee created")
	h.writeJSONResponse(w, employee, http.StatusCreated)
}

// UpdateEmployee handles PUT /employees/{id}. Empty fields keep their value.
func (h *Handlers) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req models.EmployeeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeErrorResponse(w, r, err.Error(), http.StatusBadRequest, codeBadRequest)
		return
	}

	employee, err := h.employees.Get(r.Context(), id)
	if err != nil {
		h.employeeError(w, r, id, err, "update_employee")
		return
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		employee.Name = name
	}
	if req.Department != "" {
		employee.Department = req.Department
	}
	if req.Email != "" {
		employee.Email = req.Email
	}
	if req.IsActive != nil {
		employee.IsActive = *req.IsActive
	}

	if err := h.employees.Update(r.Context(), employee); err != nil {
		h.employeeError(w, r, id, err, "update_employee")
		return
	}

	h.writeJSONResponse(w, employee, http.StatusOK)
}

// DeleteEmployee handles DELETE /employees/{id} as a soft delete
func (h *Handlers) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.employees.SoftDelete(r.Context(), id); err != nil {
		h.employeeError(w, r, id, err, "delete_employee")
		return
	}

	h.log.WithField("employee_id", id).Info("Employee deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) employeeError(w http.ResponseWriter, r *http.Request, id string, err error, operation string) {
	if errors.Is(err, database.ErrNotFound) {
		h.writeErrorResponse(w, r, fmt.Sprintf("Employee with ID %s not found", id), http.StatusNotFound, codeNotFound)
		return
	}
	h.internalError(w, r, err, operation)
}

func (h *Handlers) writeEmployeeList(w http.ResponseWriter, r *http.Request, employees []models.Employee, err error, operation string) {
	if err != nil {
		h.internalError(w, r, err, operation)
		return
	}
	if employees == nil {
		employees = []models.Employee{}
	}
	h.writeJSONResponse(w, employees, http.StatusOK)
}

package api

import (
	"net/http"
	"testing"

	"laptop-checkpoint/internal/cloud/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmployeeReads(t *testing.T) {
	env := setupTestEnv(t)
	token := env.login(t)

	var all []models.Employee
	resp := env.do(t, http.MethodGet, "/employees", token, nil, &all)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, all, 2)
	assert.Equal(t, "Jane Smith", all[0].Name)

	var hits []models.Employee
	env.do(t, http.MethodGet, "/employees/search?q=COMPANY.com", token, nil, &hits)
	require.Len(t, hits, 1)
	assert.Equal(t, "CA02528", hits[0].ID)

	var hr []models.Employee
	env.do(t, http.MethodGet, "/employees/department/HR", token, nil, &hr)
	require.Len(t, hr, 1)
	assert.Equal(t, "Jane Smith", hr[0].Name)

	var count map[string]int64
	env.do(t, http.MethodGet, "/employees/count", token, nil, &count)
	assert.Equal(t, int64(2), count["activeCount"])

	var one models.Employee
	resp = env.do(t, http.MethodGet, "/employees/CA02528", token, nil, &one)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "IT", one.Department)

	var body models.ErrorResponse
	resp = env.do(t, http.MethodGet, "/employees/ZZ00000", token, nil, &body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Employee with ID ZZ00000 not found", body.Message)
}

func TestEmployeeCreateUpdateDelete(t *testing.T) {
	env := setupTestEnv(t)
	token := env.login(t)

	inactive := false
	var created models.Employee
	resp := env.do(t, http.MethodPost, "/employees", token, models.EmployeeRequest{
		ID:         "CA03000",
		Name:       "  Ana Lima ",
		Department: "Finance",
	}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Ana Lima", created.Name)
	assert.True(t, created.IsActive)

	resp = env.do(t, http.MethodPost, "/employees", token, models.EmployeeRequest{ID: "CA03000", Name: "Again"}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/employees", token, models.EmployeeRequest{ID: "CA03001"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var updated models.Employee
	resp = env.do(t, http.MethodPut, "/employees/CA03000", token, models.EmployeeRequest{
		Email:    "ana@company.com",
		IsActive: &inactive,
	}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ana Lima", updated.Name, "empty fields keep their value")
	assert.Equal(t, "Finance", updated.Department)
	assert.Equal(t, "ana@company.com", updated.Email)
	assert.False(t, updated.IsActive)

	resp = env.do(t, http.MethodPut, "/employees/ZZ00000", token, models.EmployeeRequest{Name: "x"}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/employees/CA02528", token, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/employees/CA02528", token, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Soft-deleted employees disappear from every read and cannot be logged
	resp = env.do(t, http.MethodGet, "/employees/CA02528", token, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var all []models.Employee
	env.do(t, http.MethodGet, "/employees", token, nil, &all)
	assert.Len(t, all, 2)

	resp = env.do(t, http.MethodPost, "/logs", token, models.CreateLogEntryRequest{EmployeeID: "CA02528", Action: "entry"}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var count map[string]int64
	env.do(t, http.MethodGet, "/employees/count", token, nil, &count)
	assert.Equal(t, int64(1), count["activeCount"])
}

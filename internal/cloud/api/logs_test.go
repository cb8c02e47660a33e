package api

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"laptop-checkpoint/internal/cloud/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createLog(t *testing.T, env *testEnv, token, employeeID, action string, ts time.Time) models.LogEntry {
	t.Helper()

	var entry models.LogEntry
	resp := env.do(t, http.MethodPost, "/logs", token, models.CreateLogEntryRequest{
		EmployeeID: employeeID,
		DeviceID:   employeeID,
		Action:     action,
		Timestamp:  &ts,
	}, &entry)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return entry
}

func TestCreateLog(t *testing.T) {
	env := setupTestEnv(t)
	token := env.login(t)
	ts := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	entry := createLog(t, env, token, "CA02528", "entry", ts)
	assert.NotEmpty(t, entry.ID)
	assert.True(t, entry.Timestamp.Equal(ts))
	require.NotNil(t, entry.Employee)
	assert.Equal(t, "John Doe", entry.Employee.Name)

	tests := []struct {
		name    string
		body    interface{}
		status  int
		message string
	}{
		{"unknown employee", models.CreateLogEntryRequest{EmployeeID: "ZZ99999", DeviceID: "ZZ99999", Action: "entry"}, http.StatusNotFound, "Employee with ID ZZ99999 not found"},
		{"invalid action", models.CreateLogEntryRequest{EmployeeID: "CA02528", DeviceID: "CA02528", Action: "sideways"}, http.StatusNotFound, "Action must be either 'entry' or 'exit'"},
		{"missing employee", models.CreateLogEntryRequest{Action: "entry"}, http.StatusBadRequest, "employeeId is required"},
		{"malformed body", `{"employeeId": 12`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body models.ErrorResponse
			resp := env.do(t, http.MethodPost, "/logs", token, tt.body, &body)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.message != "" {
				assert.Equal(t, tt.message, body.Message)
			}
		})
	}

	var all []models.LogEntry
	env.do(t, http.MethodGet, "/logs", token, nil, &all)
	assert.Len(t, all, 1)
}

func TestCreateLogDefaults(t *testing.T) {
	env := setupTestEnv(t)
	token := env.login(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	env.server.handlers.now = func() time.Time { return now }

	var entry models.LogEntry
	resp := env.do(t, http.MethodPost, "/logs", token, models.CreateLogEntryRequest{EmployeeID: "CA02529", Action: "exit"}, &entry)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, entry.Timestamp.Equal(now))
	assert.Equal(t, "CA02529", entry.DeviceID)
}

func TestCreateLogStorageFailure(t *testing.T) {
	env := setupTestEnv(t)
	token := env.login(t)
	env.logs.failWith = errors.New("connection reset by peer")

	var body models.ErrorResponse
	resp := env.do(t, http.MethodPost, "/logs", token, models.CreateLogEntryRequest{EmployeeID: "CA02528", Action: "entry"}, &body)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Internal server error", body.Message)
	assert.Contains(t, env.logBuf.String(), "connection reset by peer")
}

func TestLogQueries(t *testing.T) {
	env := setupTestEnv(t)
	token := env.login(t)

	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	first := createLog(t, env, token, "CA02528", "entry", day.Add(8*time.Hour))
	createLog(t, env, token, "CA02529", "entry", day.Add(9*time.Hour))
	createLog(t, env, token, "CA02528", "exit", day.Add(17*time.Hour))
	createLog(t, env, token, "CA02528", "entry", day.Add(32*time.Hour))

	t.Run("list is newest first", func(t *testing.T) {
		var all []models.LogEntry
		env.do(t, http.MethodGet, "/logs", token, nil, &all)
		require.Len(t, all, 4)
		for i := 1; i < len(all); i++ {
			assert.False(t, all[i].Timestamp.After(all[i-1].Timestamp))
		}
	})

	t.Run("recent", func(t *testing.T) {
		var recent []models.LogEntry
		resp := env.do(t, http.MethodGet, "/logs/recent?limit=2", token, nil, &recent)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, recent, 2)

		resp = env.do(t, http.MethodGet, "/logs/recent", token, nil, &recent)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, recent, 4)

		for _, bad := range []string{"abc", "0", "-3", "5000"} {
			resp = env.do(t, http.MethodGet, "/logs/recent?limit="+bad, token, nil, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, bad)
		}
	})

	t.Run("by employee", func(t *testing.T) {
		var entries []models.LogEntry
		resp := env.do(t, http.MethodGet, "/logs/employee/CA02528", token, nil, &entries)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, entries, 3)

		resp = env.do(t, http.MethodGet, "/logs/employee/ZZ00000", token, nil, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("by device", func(t *testing.T) {
		var entries []models.LogEntry
		env.do(t, http.MethodGet, "/logs/device/CA02529", token, nil, &entries)
		assert.Len(t, entries, 1)
	})

	t.Run("by action", func(t *testing.T) {
		var entries []models.LogEntry
		env.do(t, http.MethodGet, "/logs/action/exit", token, nil, &entries)
		assert.Len(t, entries, 1)

		resp := env.do(t, http.MethodGet, "/logs/action/leave", token, nil, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("date range", func(t *testing.T) {
		var entries []models.LogEntry
		resp := env.do(t, http.MethodGet, "/logs/date-range?startDate=2024-05-01T00:00:00Z&endDate=2024-05-01T23:59:59Z", token, nil, &entries)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, entries, 3)

		resp = env.do(t, http.MethodGet, "/logs/date-range?startDate=yesterday&endDate=2024-05-02", token, nil, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp = env.do(t, http.MethodGet, "/logs/date-range?startDate=2024-05-01", token, nil, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("get one", func(t *testing.T) {
		var got models.LogEntry
		resp := env.do(t, http.MethodGet, "/logs/"+first.ID, token, nil, &got)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, first.ID, got.ID)

		var body models.ErrorResponse
		resp = env.do(t, http.MethodGet, "/logs/missing", token, nil, &body)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Log entry with ID missing not found", body.Message)
	})
}

func TestLogStatsUsesLocalMidnight(t *testing.T) {
	env := setupTestEnv(t)
	token := env.login(t)

	loc := time.FixedZone("AEST", 10*60*60)
	now := time.Date(2024, 5, 10, 10, 0, 0, 0, loc)
	env.server.handlers.now = func() time.Time { return now }

	// 23:30 UTC on May 9 is 09:30 on May 10 in the server's zone
	createLog(t, env, token, "CA02528", "entry", time.Date(2024, 5, 9, 23, 30, 0, 0, time.UTC))
	createLog(t, env, token, "CA02528", "exit", time.Date(2024, 5, 9, 13, 0, 0, 0, time.UTC))
	createLog(t, env, token, "CA02529", "exit", now.Add(-time.Minute))
	// May 11 in the server's zone belongs to tomorrow
	createLog(t, env, token, "CA02529", "entry", time.Date(2024, 5, 11, 0, 30, 0, 0, loc))

	var stats models.LogStats
	resp := env.do(t, http.MethodGet, "/logs/stats", token, nil, &stats)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.LogStats{TotalLogs: 4, EntriesToday: 1, ExitsToday: 1}, stats)
}

func TestDeleteLogs(t *testing.T) {
	env := setupTestEnv(t)
	token := env.login(t)
	ts := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	first := createLog(t, env, token, "CA02528", "entry", ts)
	createLog(t, env, token, "CA02528", "exit", ts.Add(time.Hour))

	resp := env.do(t, http.MethodDelete, "/logs/"+first.ID, token, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/logs/"+first.ID, token, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/logs", token, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	var all []models.LogEntry
	env.do(t, http.MethodGet, "/logs", token, nil, &all)
	assert.Empty(t, all)
	assert.Contains(t, env.logBuf.String(), "All log entries deleted")
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"laptop-checkpoint/internal/cloud/models"

	"github.com/google/uuid"
)

const logSelect = `SELECT l.id, l.timestamp, l.employee_id, l.action, l.device_id, l.created_at,
	e.id, e.name, COALESCE(e.department, ''), COALESCE(e.email, ''), e.is_active, e.created_at, e.updated_at, e.deleted_at
	FROM log_entries l LEFT JOIN employees e ON e.id = l.employee_id`

// LogRepository stores check-in/check-out records
type LogRepository struct {
	db *sql.DB
}

// NewLogRepository creates a log repository on an open connection
func NewLogRepository(conn *Connection) *LogRepository {
	return &LogRepository{db: conn.DB}
}

// Create assigns an id and inserts the entry. Employee existence is checked by
// the caller.
func (r *LogRepository) Create(ctx context.Context, entry *models.LogEntry) error {
	entry.ID = uuid.New().String()
	entry.CreatedAt = time.Now()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = entry.CreatedAt
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO log_entries (id, timestamp, employee_id, action, device_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.Timestamp, entry.EmployeeID, entry.Action, entry.DeviceID, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create log entry: %w", translateError(err))
	}
	return nil
}

// List returns every entry, newest first
func (r *LogRepository) List(ctx context.Context) ([]models.LogEntry, error) {
	return r.query(ctx, logSelect+` ORDER BY l.timestamp DESC`)
}

// Recent returns at most limit entries, newest first
func (r *LogRepository) Recent(ctx context.Context, limit int) ([]models.LogEntry, error) {
	return r.query(ctx, logSelect+` ORDER BY l.timestamp DESC LIMIT $1`, limit)
}

// ByEmployee returns the entries of one employee, newest first
func (r *LogRepository) ByEmployee(ctx context.Context, employeeID string) ([]models.LogEntry, error) {
	return r.query(ctx, logSelect+` WHERE l.employee_id = $1 ORDER BY l.timestamp DESC`, employeeID)
}

// ByDevice returns the entries recorded for one device id, newest first
func (r *LogRepository) ByDevice(ctx context.Context, deviceID string) ([]models.LogEntry, error) {
	return r.query(ctx, logSelect+` WHERE l.device_id = $1 ORDER BY l.timestamp DESC`, deviceID)
}

// ByAction returns entries of one action, newest first
func (r *LogRepository) ByAction(ctx context.Context, action string) ([]models.LogEntry, error) {
	return r.query(ctx, logSelect+` WHERE l.action = $1 ORDER BY l.timestamp DESC`, action)
}

// DateRange returns entries with start <= timestamp <= end, newest first
func (r *LogRepository) DateRange(ctx context.Context, start, end time.Time) ([]models.LogEntry, error) {
	return r.query(ctx, logSelect+` WHERE l.timestamp BETWEEN $1 AND $2 ORDER BY l.timestamp DESC`, start, end)
}

// Get returns one entry or ErrNotFound
func (r *LogRepository) Get(ctx context.Context, id string) (*models.LogEntry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	entry, err := scanLogEntry(r.db.QueryRowContext(ctx, logSelect+` WHERE l.id = $1`, id))
	if err != nil {
		return nil, translateError(err)
	}
	return entry, nil
}

// Stats counts all entries and the entries and exits of the day starting at
// dayStart. Entries stamped on a later day are not counted as today.
func (r *LogRepository) Stats(ctx context.Context, dayStart time.Time) (*models.LogStats, error) {
	var stats models.LogStats
	err := r.db.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE action = 'entry' AND timestamp >= $1 AND timestamp < $2),
		COUNT(*) FILTER (WHERE action = 'exit' AND timestamp >= $1 AND timestamp < $2)
		FROM log_entries`, dayStart, dayStart.AddDate(0, 0, 1)).Scan(&stats.TotalLogs, &stats.EntriesToday, &stats.ExitsToday)
	if err != nil {
		return nil, fmt.Errorf("failed to compute log stats: %w", err)
	}
	return &stats, nil
}

// DeleteAll removes every entry
func (r *LogRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM log_entries`); err != nil {
		return fmt.Errorf("failed to delete log entries: %w", err)
	}
	return nil
}

// Delete removes one entry or returns ErrNotFound
func (r *LogRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM log_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete log entry: %w", err)
	}
	return expectRow(result)
}

func (r *LogRepository) query(ctx context.Context, query string, args ...interface{}) ([]models.LogEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query log entries: %w", err)
	}
	defer rows.Close()

	entries := []models.LogEntry{}
	for rows.Next() {
		entry, err := scanLogEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func scanLogEntry(s scanner) (*models.LogEntry, error) {
	var entry models.LogEntry
	var (
		empID, empName, empDept, empEmail sql.NullString
		empActive                         sql.NullBool
		empCreated, empUpdated, empDelete sql.NullTime
	)

	if err := s.Scan(&entry.ID, &entry.Timestamp, &entry.EmployeeID, &entry.Action, &entry.DeviceID, &entry.CreatedAt,
		&empID, &empName, &empDept, &empEmail, &empActive, &empCreated, &empUpdated, &empDelete); err != nil {
		return nil, err
	}

	if empID.Valid {
		entry.Employee = &models.Employee{
			ID:         empID.String,
			Name:       empName.String,
			Department: empDept.String,
			Email:      empEmail.String,
			IsActive:   empActive.Bool,
			CreatedAt:  empCreated.Time,
			UpdatedAt:  empUpdated.Time,
		}
		if empDelete.Valid {
			entry.Employee.DeletedAt = &empDelete.Time
		}
	}
	return &entry, nil
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"laptop-checkpoint/internal/cloud/models"
)

const employeeColumns = `id, name, COALESCE(department, ''), COALESCE(email, ''), is_active, created_at, updated_at, deleted_at`

// EmployeeRepository stores the employee directory. Soft-deleted rows are
// invisible to every read.
type EmployeeRepository struct {
	db *sql.DB
}

// NewEmployeeRepository creates an employee repository on an open connection
func NewEmployeeRepository(conn *Connection) *EmployeeRepository {
	return &EmployeeRepository{db: conn.DB}
}

// List returns active directory rows ordered by name
func (r *EmployeeRepository) List(ctx context.Context) ([]models.Employee, error) {
	return r.query(ctx, `SELECT `+employeeColumns+` FROM employees
		WHERE deleted_at IS NULL ORDER BY name`)
}

// Search matches the query case-insensitively against name, email and department
func (r *EmployeeRepository) Search(ctx context.Context, q string) ([]models.Employee, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(q)) + "%"
	return r.query(ctx, `SELECT `+employeeColumns+` FROM employees
		WHERE deleted_at IS NULL
		AND (LOWER(name) LIKE $1 OR LOWER(COALESCE(email, '')) LIKE $1 OR LOWER(COALESCE(department, '')) LIKE $1)
		ORDER BY name`, pattern)
}

// ByDepartment returns employees of one department
func (r *EmployeeRepository) ByDepartment(ctx context.Context, department string) ([]models.Employee, error) {
	return r.query(ctx, `SELECT `+employeeColumns+` FROM employees
		WHERE deleted_at IS NULL AND department = $1 ORDER BY name`, department)
}

// ActiveCount counts employees that are active and not deleted
func (r *EmployeeRepository) ActiveCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM employees WHERE is_active AND deleted_at IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count employees: %w", err)
	}
	return count, nil
}

// Get returns one employee or ErrNotFound
func (r *EmployeeRepository) Get(ctx context.Context, id string) (*models.Employee, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees
		WHERE id = $1 AND deleted_at IS NULL`, id)

	emp, err := scanEmployee(row)
	if err != nil {
		return nil, translateError(err)
	}
	return emp, nil
}

// Create inserts a new employee. A soft-deleted row with the same id blocks
// the insert with ErrDuplicate.
func (r *EmployeeRepository) Create(ctx context.Context, emp *models.Employee) error {
	now := time.Now()
	emp.CreatedAt = now
	emp.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO employees (id, name, department, email, is_active, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7)`,
		emp.ID, emp.Name, emp.Department, emp.Email, emp.IsActive, emp.CreatedAt, emp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create employee: %w", translateError(err))
	}
	return nil
}

// Update overwrites the mutable fields of an employee
func (r *EmployeeRepository) Update(ctx context.Context, emp *models.Employee) error {
	emp.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx,
		`UPDATE employees SET name = $2, department = NULLIF($3, ''), email = NULLIF($4, ''),
		is_active = $5, updated_at = $6 WHERE id = $1 AND deleted_at IS NULL`,
		emp.ID, emp.Name, emp.Department, emp.Email, emp.IsActive, emp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update employee: %w", translateError(err))
	}
	return expectRow(result)
}

// SoftDelete marks an employee deleted and inactive
func (r *EmployeeRepository) SoftDelete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE employees SET deleted_at = NOW(), is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
	}
	return expectRow(result)
}

func (r *EmployeeRepository) query(ctx context.Context, query string, args ...interface{}) ([]models.Employee, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	employees := []models.Employee{}
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, *emp)
	}
	return employees, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEmployee(s scanner) (*models.Employee, error) {
	var emp models.Employee
	var deletedAt sql.NullTime
	if err := s.Scan(&emp.ID, &emp.Name, &emp.Department, &emp.Email, &emp.IsActive,
		&emp.CreatedAt, &emp.UpdatedAt, &deletedAt); err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		emp.DeletedAt = &deletedAt.Time
	}
	return &emp, nil
}

func expectRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

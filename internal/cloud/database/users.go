package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"laptop-checkpoint/internal/cloud/models"

	"github.com/google/uuid"
)

// UserRepository stores operator accounts
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a user repository on an open connection
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{db: conn.DB}
}

// Create inserts a user. Emails are stored lowercase and must be unique.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = uuid.New().String()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, role, created_at) VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Email, user.PasswordHash, user.Role, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", translateError(err))
	}
	return nil
}

const userSelect = `SELECT id, email, password_hash, role, created_at, last_login_at FROM users`

// GetByEmail returns the user with the email or ErrNotFound
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.get(ctx, userSelect+` WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)))
}

// GetByID returns the user with the id or ErrNotFound
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	return r.get(ctx, userSelect+` WHERE id = $1`, id)
}

func (r *UserRepository) get(ctx context.Context, query string, arg string) (*models.User, error) {
	var user models.User
	var lastLogin sql.NullTime

	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt, &lastLogin)
	if err != nil {
		return nil, translateError(err)
	}

	if lastLogin.Valid {
		user.LastLoginAt = &lastLogin.Time
	}
	return &user, nil
}

// TouchLogin records a successful login
func (r *UserRepository) TouchLogin(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return expectRow(result)
}

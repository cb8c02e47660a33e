package models

import (
	"time"
)

// Employee is a directory record on the authoritative service. ID is the
// device/badge id.
type Employee struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Department string     `json:"department,omitempty"`
	Email      string     `json:"email,omitempty"`
	IsActive   bool       `json:"isActive"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	DeletedAt  *time.Time `json:"deletedAt,omitempty"`
}

// LogEntry is a stored check-in/check-out record with its resolved employee
type LogEntry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	EmployeeID string    `json:"employeeId"`
	Action     string    `json:"action"`
	DeviceID   string    `json:"deviceId"`
	CreatedAt  time.Time `json:"createdAt"`
	Employee   *Employee `json:"employee,omitempty"`
}

// CreateLogEntryRequest is the body of POST /logs
type CreateLogEntryRequest struct {
	Timestamp  *time.Time `json:"timestamp,omitempty"`
	EmployeeID string     `json:"employeeId"`
	DeviceID   string     `json:"deviceId"`
	Action     string     `json:"action"`
}

// LogStats is the body of GET /logs/stats
type LogStats struct {
	TotalLogs    int64 `json:"totalLogs"`
	EntriesToday int64 `json:"entriesToday"`
	ExitsToday   int64 `json:"exitsToday"`
}

// EmployeeRequest is the body of POST /employees and PUT /employees/{id}
type EmployeeRequest struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department,omitempty"`
	Email      string `json:"email,omitempty"`
	IsActive   *bool  `json:"isActive,omitempty"`
}

// User roles
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is an operator account allowed to call the API
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

// UserInfo is the public part of a User returned on login
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// RefreshRequest is the body of POST /auth/refresh and POST /auth/logout
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is returned by login, register and refresh
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	User         *UserInfo `json:"user,omitempty"`
}

// ErrorResponse is the JSON error body written by the service
type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"requestId,omitempty"`
}

package logging

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"laptop-checkpoint/internal/store"

	"github.com/sirupsen/logrus"
)

// ErrorCategory represents different categories of errors for classification
type ErrorCategory string

const (
	// Remote service unreachable or failing
	ErrorCategoryNetwork ErrorCategory = "network"
	// Local database errors
	ErrorCategoryStorage ErrorCategory = "storage"
	// Rejected input
	ErrorCategoryValidation ErrorCategory = "validation"
	// Authentication/Security errors
	ErrorCategorySecurity ErrorCategory = "security"
	// Configuration errors
	ErrorCategoryConfig ErrorCategory = "config"
	// Service/Application errors
	ErrorCategoryService ErrorCategory = "service"
	// Unknown/Uncategorized errors
	ErrorCategoryUnknown ErrorCategory = "unknown"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	ErrorSeverityCritical ErrorSeverity = "critical"
	ErrorSeverityHigh     ErrorSeverity = "high"
	ErrorSeverityMedium   ErrorSeverity = "medium"
	ErrorSeverityLow      ErrorSeverity = "low"
	ErrorSeverityInfo     ErrorSeverity = "info"
)

// ErrorContext provides additional context for error logging
type ErrorContext struct {
	Category    ErrorCategory          `json:"category"`
	Severity    ErrorSeverity          `json:"severity"`
	Component   string                 `json:"component"`
	Operation   string                 `json:"operation"`
	UserID      string                 `json:"user_id,omitempty"`
	DeviceID    string                 `json:"device_id,omitempty"`
	Recoverable bool                   `json:"recoverable"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// StructuredError represents a structured error with context
type StructuredError struct {
	Err       error        `json:"error"`
	Context   ErrorContext `json:"context"`
	Timestamp time.Time    `json:"timestamp"`
	Stack     string       `json:"stack,omitempty"`
}

// Error implements the error interface
func (se *StructuredError) Error() string {
	if se.Err != nil {
		return se.Err.Error()
	}
	return "unknown error"
}

// Unwrap returns the underlying error
func (se *StructuredError) Unwrap() error {
	return se.Err
}

// NewStructuredError creates a new structured error with context
func NewStructuredError(err error, context ErrorContext) *StructuredError {
	structuredErr := &StructuredError{
		Err:       err,
		Context:   context,
		Timestamp: time.Now(),
	}

	// Capture stack trace for critical and high severity errors
	if context.Severity == ErrorSeverityCritical || context.Severity == ErrorSeverityHigh {
		structuredErr.Stack = captureStackTrace()
	}

	return structuredErr
}

// LogStructuredError logs a structured error with appropriate level and context
func LogStructuredError(logger *logrus.Logger, structuredErr *StructuredError) {
	if logger == nil || structuredErr == nil {
		return
	}

	entry := logger.WithFields(logrus.Fields{
		"error_category": structuredErr.Context.Category,
		"error_severity": structuredErr.Context.Severity,
		"component":      structuredErr.Context.Component,
		"operation":      structuredErr.Context.Operation,
		"recoverable":    structuredErr.Context.Recoverable,
	})

	if structuredErr.Context.UserID != "" {
		entry = entry.WithField("user_id", structuredErr.Context.UserID)
	}
	if structuredErr.Context.DeviceID != "" {
		entry = entry.WithField("device_id", structuredErr.Context.DeviceID)
	}
	for key, value := range structuredErr.Context.Metadata {
		entry = entry.WithField(fmt.Sprintf("meta_%s", key), value)
	}
	if structuredErr.Stack != "" {
		entry = entry.WithField("stack_trace", structuredErr.Stack)
	}

	switch structuredErr.Context.Severity {
	case ErrorSeverityCritical, ErrorSeverityHigh:
		entry.Error(structuredErr.Error())
	case ErrorSeverityMedium, ErrorSeverityLow:
		entry.Warn(structuredErr.Error())
	case ErrorSeverityInfo:
		entry.Info(structuredErr.Error())
	default:
		entry.Error(structuredErr.Error())
	}
}

// LogNetworkError logs a failed remote call that was served by the local store instead
func LogNetworkError(logger *logrus.Logger, err error, operation string) {
	context := ErrorContext{
		Category:    ErrorCategoryNetwork,
		Severity:    ErrorSeverityMedium,
		Component:   "client",
		Operation:   operation,
		Recoverable: true,
	}

	LogStructuredError(logger, NewStructuredError(err, context))
}

// LogSecurityError logs security-related errors
func LogSecurityError(logger *logrus.Logger, err error, userID, operation string) {
	context := ErrorContext{
		Category:    ErrorCategorySecurity,
		Severity:    ErrorSeverityLow,
		Component:   "auth",
		Operation:   operation,
		UserID:      userID,
		Recoverable: false,
	}

	LogStructuredError(logger, NewStructuredError(err, context))
}

// LogStorageError logs database/storage-related errors
func LogStorageError(logger *logrus.Logger, err error, operation string) {
	context := ErrorContext{
		Category:    ErrorCategoryStorage,
		Severity:    ErrorSeverityHigh,
		Component:   "database",
		Operation:   operation,
		Recoverable: false,
	}

	LogStructuredError(logger, NewStructuredError(err, context))
}

// LogValidationError logs rejected input
func LogValidationError(logger *logrus.Logger, err error, operation, deviceID string) {
	context := ErrorContext{
		Category:    ErrorCategoryValidation,
		Severity:    ErrorSeverityInfo,
		Component:   "checkpoint",
		Operation:   operation,
		DeviceID:    deviceID,
		Recoverable: false,
	}

	LogStructuredError(logger, NewStructuredError(err, context))
}

// LogServiceError logs service/application-related errors
func LogServiceError(logger *logrus.Logger, err error, serviceName, operation string) {
	context := ErrorContext{
		Category:    ErrorCategoryService,
		Severity:    ErrorSeverityHigh,
		Component:   serviceName,
		Operation:   operation,
		Recoverable: false,
	}

	LogStructuredError(logger, NewStructuredError(err, context))
}

// captureStackTrace captures the current stack trace
func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// ClassifyError attempts to classify an error based on its kind and message
func ClassifyError(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryUnknown
	}

	switch {
	case errors.Is(err, store.ErrValidation):
		return ErrorCategoryValidation
	case errors.Is(err, store.ErrStorage):
		return ErrorCategoryStorage
	case errors.Is(err, store.ErrRemoteUnavailable):
		return ErrorCategoryNetwork
	}

	errMsg := strings.ToLower(err.Error())

	keywords := []struct {
		category ErrorCategory
		words    []string
	}{
		{ErrorCategoryNetwork, []string{
			"connection refused", "connection reset", "connection timeout",
			"network is unreachable", "no such host", "i/o timeout",
			"dial tcp", "tls handshake",
		}},
		{ErrorCategorySecurity, []string{
			"authentication", "unauthorized", "forbidden", "invalid token", "expired",
		}},
		{ErrorCategoryStorage, []string{
			"database", "sqlite", "sql", "constraint", "disk", "no space left",
		}},
		{ErrorCategoryConfig, []string{
			"config", "configuration", "yaml", "setting",
		}},
	}

	for _, group := range keywords {
		for _, keyword := range group.words {
			if strings.Contains(errMsg, keyword) {
				return group.category
			}
		}
	}

	return ErrorCategoryUnknown
}

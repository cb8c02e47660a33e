package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// ServiceName is attached to every log line
const ServiceName = "laptop-checkpoint"

// Version is overridden at build time
var Version = "dev"

// Initialize sets up structured logging with the specified level
func Initialize(logLevel string) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		level = logrus.InfoLevel
		logger.WithError(err).Warn("Invalid log level, defaulting to info")
	}
	logger.SetLevel(level)

	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	// Logs go to stderr so command output on stdout stays clean
	logger.SetOutput(os.Stderr)

	logger.AddHook(&fieldsHook{fields: logrus.Fields{
		"service": ServiceName,
		"version": Version,
	}})

	return logger
}

// SetupFileLogging configures logging to write to a file in addition to stderr
func SetupFileLogging(logger *logrus.Logger, logFile string) (io.Closer, error) {
	if logFile == "" {
		return nopCloser{}, nil
	}

	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	logger.SetOutput(io.MultiWriter(os.Stderr, file))
	logger.WithField("log_file", logFile).Debug("File logging enabled")

	return file, nil
}

// NewContextLogger creates a logger with additional context fields
func NewContextLogger(logger *logrus.Logger, fields logrus.Fields) *logrus.Entry {
	return logger.WithFields(fields)
}

// NewServiceLogger creates a logger for internal services
func NewServiceLogger(logger *logrus.Logger, serviceName string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"component": "service",
		"service":   serviceName,
	})
}

// fieldsHook adds constant fields to every entry that does not set them
type fieldsHook struct {
	fields logrus.Fields
}

func (h *fieldsHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fieldsHook) Fire(entry *logrus.Entry) error {
	for k, v := range h.fields {
		if _, ok := entry.Data[k]; !ok {
			entry.Data[k] = v
		}
	}
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

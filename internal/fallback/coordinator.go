// Package fallback routes every store operation to the remote service first and
// reruns it against the local database when the remote call fails.
package fallback

import (
	"context"
	"errors"
	"fmt"

	"laptop-checkpoint/internal/logging"
	"laptop-checkpoint/internal/store"
	"laptop-checkpoint/internal/types"

	"github.com/sirupsen/logrus"
)

// run executes remote, and local only when remote failed or hasRemote is
// false. Validation errors from the remote backend are returned without
// falling back.
func run[T any](logger *logrus.Logger, op string, hasRemote bool, remote, local func() (T, error)) (T, error) {
	if hasRemote {
		result, err := remote()
		if err == nil {
			return result, nil
		}
		if errors.Is(err, store.ErrValidation) {
			return result, err
		}
		logRemoteFailure(logger, err, op)
		logging.NewServiceLogger(logger, "fallback").WithField("operation", op).Info("Remote backend failed, using local store")
	}

	result, err := local()
	if err != nil {
		if !errors.Is(err, store.ErrValidation) {
			logging.LogStorageError(logger, err, op)
		}
		return result, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// logRemoteFailure records why a remote call was abandoned. Transport and
// server failures are network errors; anything else keeps its own category.
func logRemoteFailure(logger *logrus.Logger, err error, op string) {
	category := logging.ClassifyError(err)
	if category == logging.ErrorCategoryNetwork || category == logging.ErrorCategoryUnknown {
		logging.LogNetworkError(logger, err, op)
		return
	}

	logging.LogStructuredError(logger, logging.NewStructuredError(err, logging.ErrorContext{
		Category:    category,
		Severity:    logging.ErrorSeverityMedium,
		Component:   "client",
		Operation:   op,
		Recoverable: true,
	}))
}

// EventStore serves the event log from the remote service with the local
// store as fallback
type EventStore struct {
	remote store.EventStore
	local  store.EventStore
	logger *logrus.Logger
}

// NewEventStore creates a coordinator. remote may be nil for a local-only setup.
func NewEventStore(remote, local store.EventStore, logger *logrus.Logger) *EventStore {
	return &EventStore{remote: remote, local: local, logger: logger}
}

func (s *EventStore) Append(ctx context.Context, event types.NewEvent) (types.Event, error) {
	if err := event.Validate(); err != nil {
		return types.Event{}, store.ValidationError("%v", err)
	}
	return run(s.logger, "append", s.remote != nil,
		func() (types.Event, error) { return s.remote.Append(ctx, event) },
		func() (types.Event, error) { return s.local.Append(ctx, event) },
	)
}

func (s *EventStore) ListAll(ctx context.Context) ([]types.Event, error) {
	return run(s.logger, "list events", s.remote != nil,
		func() ([]types.Event, error) { return s.remote.ListAll(ctx) },
		func() ([]types.Event, error) { return s.local.ListAll(ctx) },
	)
}

func (s *EventStore) DeleteAll(ctx context.Context) error {
	_, err := run(s.logger, "delete all events", s.remote != nil,
		func() (struct{}, error) { return struct{}{}, s.remote.DeleteAll(ctx) },
		func() (struct{}, error) { return struct{}{}, s.local.DeleteAll(ctx) },
	)
	return err
}

func (s *EventStore) DeleteOne(ctx context.Context, id string) error {
	_, err := run(s.logger, "delete event", s.remote != nil,
		func() (struct{}, error) { return struct{}{}, s.remote.DeleteOne(ctx, id) },
		func() (struct{}, error) { return struct{}{}, s.local.DeleteOne(ctx, id) },
	)
	return err
}

// DirectoryStore serves identity lookups from the remote service with the
// local directory as fallback
type DirectoryStore struct {
	remote store.DirectoryStore
	local  store.DirectoryStore
	logger *logrus.Logger
}

// NewDirectoryStore creates a coordinator. remote may be nil for a local-only setup.
func NewDirectoryStore(remote, local store.DirectoryStore, logger *logrus.Logger) *DirectoryStore {
	return &DirectoryStore{remote: remote, local: local, logger: logger}
}

func (s *DirectoryStore) ListAll(ctx context.Context) ([]types.Identity, error) {
	return run(s.logger, "list identities", s.remote != nil,
		func() ([]types.Identity, error) { return s.remote.ListAll(ctx) },
		func() ([]types.Identity, error) { return s.local.ListAll(ctx) },
	)
}

func (s *DirectoryStore) FindByDeviceID(ctx context.Context, id string) (*types.Identity, error) {
	return run(s.logger, "find identity", s.remote != nil,
		func() (*types.Identity, error) { return s.remote.FindByDeviceID(ctx, id) },
		func() (*types.Identity, error) { return s.local.FindByDeviceID(ctx, id) },
	)
}

// Search asks the remote directory and falls back to filtering the local one
func (s *DirectoryStore) Search(ctx context.Context, q string) ([]types.Identity, error) {
	return run(s.logger, "search identities", s.remote != nil,
		func() ([]types.Identity, error) { return store.Search(ctx, s.remote, q) },
		func() ([]types.Identity, error) { return store.Search(ctx, s.local, q) },
	)
}

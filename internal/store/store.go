package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"laptop-checkpoint/internal/types"
)

// Error kinds shared by every backend. Callers classify with errors.Is.
var (
	// ErrValidation marks input the backend refused; never a reason to fall back
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a direct fetch of an entity that does not exist
	ErrNotFound = errors.New("not found")
	// ErrRemoteUnavailable marks a remote call that failed for any transport or server reason
	ErrRemoteUnavailable = errors.New("remote backend unavailable")
	// ErrStorage marks a failure of the local persistent store
	ErrStorage = errors.New("local storage failure")
)

// ValidationError wraps a message as an ErrValidation
func ValidationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// EventStore persists check-in/check-out events as an append-only log
type EventStore interface {
	// Append assigns an id and stores the event. The input is never modified.
	Append(ctx context.Context, event types.NewEvent) (types.Event, error)
	// ListAll returns every stored event in no particular order
	ListAll(ctx context.Context) ([]types.Event, error)
	// DeleteAll irreversibly removes every event
	DeleteAll(ctx context.Context) error
	// DeleteOne removes a single event; unknown ids are a no-op
	DeleteOne(ctx context.Context, id string) error
}

// DirectoryStore looks up known identities
type DirectoryStore interface {
	ListAll(ctx context.Context) ([]types.Identity, error)
	// FindByDeviceID returns nil, nil when no identity has the id
	FindByDeviceID(ctx context.Context, id string) (*types.Identity, error)
}

// FindIdentity is the linear exact-match lookup used by directory implementations
func FindIdentity(identities []types.Identity, id string) *types.Identity {
	for i := range identities {
		if identities[i].ID == id {
			found := identities[i]
			return &found
		}
	}
	return nil
}

// DirectorySearcher is implemented by directories that can search themselves
type DirectorySearcher interface {
	Search(ctx context.Context, q string) ([]types.Identity, error)
}

// Search uses the directory's own search when it has one and filters ListAll otherwise
func Search(ctx context.Context, d DirectoryStore, q string) ([]types.Identity, error) {
	if searcher, ok := d.(DirectorySearcher); ok {
		return searcher.Search(ctx, q)
	}
	identities, err := d.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return SearchIdentities(identities, q), nil
}

// SearchIdentities returns the identities whose name, email or department
// contains q, ignoring case. An empty q matches everything.
func SearchIdentities(identities []types.Identity, q string) []types.Identity {
	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]types.Identity, 0, len(identities))
	for _, id := range identities {
		if q == "" ||
			strings.Contains(strings.ToLower(id.Name), q) ||
			strings.Contains(strings.ToLower(id.Email), q) ||
			strings.Contains(strings.ToLower(id.Department), q) {
			out = append(out, id)
		}
	}
	return out
}

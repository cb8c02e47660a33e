package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"laptop-checkpoint/internal/cloud/models"
	"laptop-checkpoint/internal/store"
	"laptop-checkpoint/internal/types"
)

// RemoteEventStore is the event log held by the checkpoint service
type RemoteEventStore struct {
	client *HTTPClient
}

// NewRemoteEventStore creates an event store over the service API
func NewRemoteEventStore(client *HTTPClient) *RemoteEventStore {
	return &RemoteEventStore{client: client}
}

func (s *RemoteEventStore) Append(ctx context.Context, event types.NewEvent) (types.Event, error) {
	if err := event.Validate(); err != nil {
		return types.Event{}, store.ValidationError("%v", err)
	}

	body := &models.CreateLogEntryRequest{
		EmployeeID: event.ResolvedEmployeeID(),
		DeviceID:   event.DeviceID,
		Action:     string(event.Action),
	}
	if !event.Timestamp.IsZero() {
		ts := event.Timestamp
		body.Timestamp = &ts
	}

	resp, err := s.client.Do(ctx, &Request{
		Method:      http.MethodPost,
		Path:        "/logs",
		Body:        body,
		RequireAuth: true,
	})
	if err != nil {
		if rejected(err) {
			return types.Event{}, store.ValidationError("create log entry: %s", err)
		}
		return types.Event{}, fmt.Errorf("create log entry: %w", err)
	}

	var entry models.LogEntry
	if err := parseJSONResponse(resp, &entry); err != nil {
		return types.Event{}, remoteDecodeError("create log entry", err)
	}

	created := toEvent(entry)
	if entry.Employee == nil && event.SubjectName != "" {
		created.SubjectName = event.SubjectName
	}
	return created, nil
}

func (s *RemoteEventStore) ListAll(ctx context.Context) ([]types.Event, error) {
	resp, err := s.client.Do(ctx, &Request{
		Method:      http.MethodGet,
		Path:        "/logs",
		RequireAuth: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list log entries: %w", err)
	}

	var entries []models.LogEntry
	if err := parseJSONResponse(resp, &entries); err != nil {
		return nil, remoteDecodeError("list log entries", err)
	}

	events := make([]types.Event, 0, len(entries))
	for _, entry := range entries {
		events = append(events, toEvent(entry))
	}
	return events, nil
}

func (s *RemoteEventStore) DeleteAll(ctx context.Context) error {
	_, err := s.client.Do(ctx, &Request{
		Method:      http.MethodDelete,
		Path:        "/logs",
		RequireAuth: true,
	})
	if err != nil {
		return fmt.Errorf("delete log entries: %w", err)
	}
	return nil
}

func (s *RemoteEventStore) DeleteOne(ctx context.Context, id string) error {
	_, err := s.client.Do(ctx, &Request{
		Method:      http.MethodDelete,
		Path:        "/logs/" + url.PathEscape(id),
		RequireAuth: true,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("delete log entry: %w", err)
	}
	return nil
}

// RemoteDirectoryStore is the employee directory held by the checkpoint service
type RemoteDirectoryStore struct {
	client *HTTPClient
}

// NewRemoteDirectoryStore creates a directory store over the service API
func NewRemoteDirectoryStore(client *HTTPClient) *RemoteDirectoryStore {
	return &RemoteDirectoryStore{client: client}
}

func (s *RemoteDirectoryStore) ListAll(ctx context.Context) ([]types.Identity, error) {
	return s.list(ctx, &Request{
		Method:      http.MethodGet,
		Path:        "/employees",
		RequireAuth: true,
	})
}

// Search returns the active employees whose name, email or department contains q
func (s *RemoteDirectoryStore) Search(ctx context.Context, q string) ([]types.Identity, error) {
	return s.list(ctx, &Request{
		Method:      http.MethodGet,
		Path:        "/employees/search",
		Query:       map[string]string{"q": q},
		RequireAuth: true,
	})
}

func (s *RemoteDirectoryStore) FindByDeviceID(ctx context.Context, id string) (*types.Identity, error) {
	resp, err := s.client.Do(ctx, &Request{
		Method:      http.MethodGet,
		Path:        "/employees/" + url.PathEscape(id),
		RequireAuth: true,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get employee: %w", err)
	}

	var employee models.Employee
	if err := parseJSONResponse(resp, &employee); err != nil {
		return nil, remoteDecodeError("get employee", err)
	}

	identity := toIdentity(employee)
	return &identity, nil
}

func (s *RemoteDirectoryStore) list(ctx context.Context, req *Request) ([]types.Identity, error) {
	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}

	var employees []models.Employee
	if err := parseJSONResponse(resp, &employees); err != nil {
		return nil, remoteDecodeError("list employees", err)
	}

	identities := make([]types.Identity, 0, len(employees))
	for _, e := range employees {
		identities = append(identities, toIdentity(e))
	}
	return identities, nil
}

func toEvent(entry models.LogEntry) types.Event {
	name := types.UnknownEmployee
	if entry.Employee != nil && entry.Employee.Name != "" {
		name = entry.Employee.Name
	}
	return types.Event{
		ID:          entry.ID,
		Timestamp:   entry.Timestamp,
		SubjectName: name,
		DeviceID:    entry.DeviceID,
		Action:      types.Action(entry.Action),
	}
}

func toIdentity(e models.Employee) types.Identity {
	return types.Identity{
		ID:         e.ID,
		Name:       e.Name,
		Department: e.Department,
		Email:      e.Email,
	}
}

// rejected reports whether the service answered and refused the request
// itself, e.g. an unknown employee id. Such a write must not be retried locally.
func rejected(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity:
		return true
	}
	return false
}

// remoteDecodeError marks an unreadable success body as a remote failure
func remoteDecodeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", store.ErrRemoteUnavailable, op, err)
}

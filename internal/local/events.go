package local

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"laptop-checkpoint/internal/database"
	"laptop-checkpoint/internal/store"
	"laptop-checkpoint/internal/types"

	"github.com/google/uuid"
)

// EventStore keeps the event log as one JSON array document in the local
// database, newest first.
type EventStore struct {
	db    *database.DB
	now   func() time.Time
	newID func() string
}

// NewEventStore creates an event store over db
func NewEventStore(db *database.DB) *EventStore {
	return &EventStore{
		db:    db,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Append prepends the event to the stored log
func (s *EventStore) Append(ctx context.Context, event types.NewEvent) (types.Event, error) {
	if err := event.Validate(); err != nil {
		return types.Event{}, store.ValidationError("%v", err)
	}

	stored := event.Stamp(s.newID(), s.now())

	err := s.db.UpdateDocument(ctx, database.KeyLogEntries, func(current []byte, found bool) ([]byte, error) {
		entries, err := decodeEvents(current, found)
		if err != nil {
			return nil, err
		}
		updated := make([]types.Event, 0, len(entries)+1)
		updated = append(updated, stored)
		updated = append(updated, entries...)
		return json.Marshal(updated)
	})
	if err != nil {
		return types.Event{}, storageError("save log entry", err)
	}

	return stored, nil
}

// ListAll returns the stored log in storage order
func (s *EventStore) ListAll(ctx context.Context) ([]types.Event, error) {
	raw, found, err := s.db.GetDocument(ctx, database.KeyLogEntries)
	if err != nil {
		return nil, storageError("get log entries", err)
	}

	entries, err := decodeEvents(raw, found)
	if err != nil {
		return nil, storageError("get log entries", err)
	}
	return entries, nil
}

// DeleteAll removes the whole log document
func (s *EventStore) DeleteAll(ctx context.Context) error {
	if err := s.db.DeleteDocument(ctx, database.KeyLogEntries); err != nil {
		return storageError("clear log entries", err)
	}
	return nil
}

// DeleteOne removes the entry with id if present
func (s *EventStore) DeleteOne(ctx context.Context, id string) error {
	err := s.db.UpdateDocument(ctx, database.KeyLogEntries, func(current []byte, found bool) ([]byte, error) {
		entries, err := decodeEvents(current, found)
		if err != nil {
			return nil, err
		}
		kept := make([]types.Event, 0, len(entries))
		for _, e := range entries {
			if e.ID != id {
				kept = append(kept, e)
			}
		}
		return json.Marshal(kept)
	})
	if err != nil {
		return storageError("delete log entry", err)
	}
	return nil
}

func decodeEvents(raw []byte, found bool) ([]types.Event, error) {
	entries := []types.Event{}
	if !found {
		return entries, nil
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode log entries: %w", err)
	}
	return entries, nil
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", store.ErrStorage, op, err)
}

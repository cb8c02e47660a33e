// Package checkpoint implements the operator actions of the laptop checkpoint:
// badge scans, bulk entry/exit, visitor registration and log reporting.
package checkpoint

import (
	"context"
	"fmt"
	"strings"
	"time"

	"laptop-checkpoint/internal/logging"
	"laptop-checkpoint/internal/report"
	"laptop-checkpoint/internal/store"
	"laptop-checkpoint/internal/types"

	"github.com/sirupsen/logrus"
)

// IdentityRegistrar adds identities to a directory
type IdentityRegistrar interface {
	Save(ctx context.Context, identity types.Identity) error
}

// Service runs checkpoint operations against an event log and a directory.
// Calls are sequential; a bulk operation is one append per identity.
type Service struct {
	events    store.EventStore
	directory store.DirectoryStore
	registrar IdentityRegistrar
	logger    *logrus.Logger
	log       *logrus.Entry
	now       func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithRegistrar enables AddIdentity
func WithRegistrar(r IdentityRegistrar) Option {
	return func(s *Service) {
		s.registrar = r
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a checkpoint service
func NewService(events store.EventStore, directory store.DirectoryStore, logger *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		events:    events,
		directory: directory,
		logger:    logger,
		log:       logging.NewServiceLogger(logger, "checkpoint"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan records a badge scan. The barcode is trimmed and upper-cased and must
// have the two-letters-five-digits shape.
func (s *Service) Scan(ctx context.Context, barcode string, action types.Action) (types.Event, error) {
	deviceID := types.NormalizeBarcode(barcode)
	if !types.IsValidBarcode(deviceID) {
		return types.Event{}, s.rejected("scan", deviceID, store.ValidationError("invalid barcode %q", barcode))
	}
	if !action.IsValid() {
		return types.Event{}, s.rejected("scan", deviceID, store.ValidationError("invalid action %q", action))
	}

	identity, err := s.directory.FindByDeviceID(ctx, deviceID)
	if err != nil {
		return types.Event{}, fmt.Errorf("failed to look up %s: %w", deviceID, err)
	}

	name := types.UnknownEmployee
	if identity != nil {
		name = identity.Name
	}

	ev, err := s.events.Append(ctx, types.NewEvent{
		Timestamp:   s.now(),
		SubjectName: name,
		DeviceID:    deviceID,
		Action:      action,
	})
	if err != nil {
		return types.Event{}, fmt.Errorf("failed to record scan: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"device_id": deviceID,
		"action":    action,
		"known":     identity != nil,
	}).Info("Scan recorded")
	return ev, nil
}

// Bulk records the same action for every selected identity, one append at a
// time in selection order. The events created before a failure are returned
// together with the error.
func (s *Service) Bulk(ctx context.Context, ids []string, action types.Action, eventName string) ([]types.Event, error) {
	if len(ids) == 0 {
		return nil, s.rejected("bulk", "", store.ValidationError("select at least one employee"))
	}
	if strings.TrimSpace(eventName) == "" {
		return nil, s.rejected("bulk", "", store.ValidationError("event name is required"))
	}
	if !action.IsValid() {
		return nil, s.rejected("bulk", "", store.ValidationError("invalid action %q", action))
	}

	identities, err := s.directory.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load directory: %w", err)
	}

	created := make([]types.Event, 0, len(ids))
	for _, id := range ids {
		name := types.UnknownEmployee
		if identity := store.FindIdentity(identities, id); identity != nil {
			name = identity.Name
		}

		ev, err := s.events.Append(ctx, types.NewEvent{
			Timestamp:   s.now(),
			SubjectName: name,
			DeviceID:    id,
			Action:      action,
		})
		if err != nil {
			return created, fmt.Errorf("bulk %s stopped at %s: %w", action, id, err)
		}
		created = append(created, ev)
	}

	s.log.WithFields(logrus.Fields{
		"event_name": eventName,
		"action":     action,
		"count":      len(created),
	}).Info("Bulk operation recorded")
	return created, nil
}

// RegisterVisitor records a visitor entry. An empty host is stored as Unknown.
func (s *Service) RegisterVisitor(ctx context.Context, name, host, deviceID string) (types.Event, error) {
	name = strings.TrimSpace(name)
	deviceID = strings.TrimSpace(deviceID)
	if name == "" || deviceID == "" {
		return types.Event{}, s.rejected("visitor", deviceID, store.ValidationError("visitor name and device id are required"))
	}

	ev, err := s.events.Append(ctx, types.NewEvent{
		Timestamp:   s.now(),
		SubjectName: types.Visitor(name, strings.TrimSpace(host)).String(),
		DeviceID:    deviceID,
		Action:      types.ActionEntry,
	})
	if err != nil {
		return types.Event{}, fmt.Errorf("failed to record visitor: %w", err)
	}
	return ev, nil
}

// Delete removes one event
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return s.rejected("delete", "", store.ValidationError("event id is required"))
	}
	return s.events.DeleteOne(ctx, id)
}

// ClearAll removes every event
func (s *Service) ClearAll(ctx context.Context) error {
	if err := s.events.DeleteAll(ctx); err != nil {
		return err
	}
	s.log.Warn("Event log cleared")
	return nil
}

// EntriesQuery selects and orders a log listing
type EntriesQuery struct {
	Filter report.Filter
	SortBy report.SortField
	Order  report.SortOrder
}

// Entries returns the filtered and sorted event log. The zero query lists
// everything newest first.
func (s *Service) Entries(ctx context.Context, q EntriesQuery) ([]types.Event, error) {
	events, err := s.events.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	if q.SortBy == "" {
		q.SortBy = report.SortByTimestamp
	}
	if q.Order == "" {
		q.Order = report.Descending
	}

	out := q.Filter.Apply(events)
	report.Sort(out, q.SortBy, q.Order)
	return out, nil
}

// Report computes statistics over a fresh read of the full log
func (s *Service) Report(ctx context.Context) (report.Stats, error) {
	events, err := s.events.ListAll(ctx)
	if err != nil {
		return report.Stats{}, err
	}
	return report.Compute(s.now(), events), nil
}

// Export renders the full log as CSV in storage order
func (s *Service) Export(ctx context.Context) (string, error) {
	events, err := s.events.ListAll(ctx)
	if err != nil {
		return "", err
	}
	return report.ExportCSV(events), nil
}

// Identities lists the directory
func (s *Service) Identities(ctx context.Context) ([]types.Identity, error) {
	return s.directory.ListAll(ctx)
}

// SearchIdentities lists the identities whose name, email or department contains q
func (s *Service) SearchIdentities(ctx context.Context, q string) ([]types.Identity, error) {
	return store.Search(ctx, s.directory, q)
}

// AddIdentity registers a new identity in the local directory
func (s *Service) AddIdentity(ctx context.Context, identity types.Identity) error {
	if s.registrar == nil {
		return fmt.Errorf("identity registration is not available")
	}
	if err := s.registrar.Save(ctx, identity); err != nil {
		return err
	}
	s.log.WithField("device_id", identity.ID).Info("Identity added")
	return nil
}

func (s *Service) rejected(op, deviceID string, err error) error {
	logging.LogValidationError(s.logger, err, op, deviceID)
	return err
}

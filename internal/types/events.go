package types

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Action is the direction of a checkpoint crossing
type Action string

// Action constants for type safety
const (
	ActionEntry Action = "entry"
	ActionExit  Action = "exit"
)

// IsValid reports whether the action is one of the two known variants
func (a Action) IsValid() bool {
	switch a {
	case ActionEntry, ActionExit:
		return true
	default:
		return false
	}
}

// ParseAction converts a raw string into an Action.
// "enter" is accepted as an alias for entry since scanners use that mode name.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "entry", "enter", "in":
		return ActionEntry, nil
	case "exit", "out":
		return ActionExit, nil
	default:
		return "", fmt.Errorf("action must be either 'entry' or 'exit', got %q", s)
	}
}

// Event is one immutable entry/exit record
type Event struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	SubjectName string    `json:"subjectName"`
	DeviceID    string    `json:"deviceId"`
	Action      Action    `json:"action"`
}

// NewEvent is the caller-supplied part of an Event; the store assigns the ID
type NewEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	SubjectName string    `json:"subjectName"`
	DeviceID    string    `json:"deviceId"`
	Action      Action    `json:"action"`

	// EmployeeID is the directory id sent to the remote service. Empty means DeviceID.
	EmployeeID string `json:"employeeId,omitempty"`
}

// Validate checks the fields every backend relies on
func (e NewEvent) Validate() error {
	if !e.Action.IsValid() {
		return fmt.Errorf("action must be either 'entry' or 'exit', got %q", e.Action)
	}
	if strings.TrimSpace(e.DeviceID) == "" {
		return fmt.Errorf("deviceId is required")
	}
	return nil
}

// ResolvedEmployeeID returns the identity id to submit with the event
func (e NewEvent) ResolvedEmployeeID() string {
	if e.EmployeeID != "" {
		return e.EmployeeID
	}
	return e.DeviceID
}

// Stamp returns an Event carrying id and the input fields. A zero timestamp is
// replaced by now.
func (e NewEvent) Stamp(id string, now time.Time) Event {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = now
	}
	return Event{
		ID:          id,
		Timestamp:   ts,
		SubjectName: e.SubjectName,
		DeviceID:    e.DeviceID,
		Action:      e.Action,
	}
}

// Identity is a known employee or badge holder. ID doubles as the device id
// scanned at the checkpoint.
type Identity struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department,omitempty"`
	Email      string `json:"email,omitempty"`
}

// UnknownEmployee is the display name used when a scanned id is not in the directory
const UnknownEmployee = "Unknown Employee"

var barcodePattern = regexp.MustCompile(`^[A-Z]{2}\d{5}$`)

// NormalizeBarcode trims and upper-cases a scanned token
func NormalizeBarcode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// IsValidBarcode checks the two-letters-five-digits device id shape
func IsValidBarcode(barcode string) bool {
	return barcodePattern.MatchString(barcode)
}

package report

import (
	"sort"
	"strings"

	"laptop-checkpoint/internal/types"
)

// Filter narrows an event listing. Zero values match everything.
type Filter struct {
	// Query matches case-insensitively against the subject name and device id
	Query  string
	Action types.Action
}

// SortField selects the ordering key
type SortField string

const (
	SortByTimestamp SortField = "timestamp"
	SortByName      SortField = "name"
)

// SortOrder is asc or desc
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// ParseSortField accepts "timestamp" and "name"
func ParseSortField(s string) (SortField, bool) {
	switch SortField(strings.ToLower(s)) {
	case SortByTimestamp, "":
		return SortByTimestamp, true
	case SortByName, "employeename":
		return SortByName, true
	}
	return "", false
}

// ParseSortOrder accepts "asc" and "desc"
func ParseSortOrder(s string) (SortOrder, bool) {
	switch SortOrder(strings.ToLower(s)) {
	case Descending, "":
		return Descending, true
	case Ascending:
		return Ascending, true
	}
	return "", false
}

// Apply returns the events matching f. The input slice is not modified.
func (f Filter) Apply(events []types.Event) []types.Event {
	query := strings.ToLower(strings.TrimSpace(f.Query))

	out := make([]types.Event, 0, len(events))
	for _, ev := range events {
		if f.Action != "" && ev.Action != f.Action {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(ev.SubjectName), query) &&
			!strings.Contains(strings.ToLower(ev.DeviceID), query) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Sort orders events in place by field and order. Equal keys keep their
// relative order.
func Sort(events []types.Event, field SortField, order SortOrder) {
	less := func(a, b types.Event) bool {
		if field == SortByName {
			return strings.ToLower(a.SubjectName) < strings.ToLower(b.SubjectName)
		}
		return a.Timestamp.Before(b.Timestamp)
	}

	sort.SliceStable(events, func(i, j int) bool {
		if order == Ascending {
			return less(events[i], events[j])
		}
		return less(events[j], events[i])
	})
}

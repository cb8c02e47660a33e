package report

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"laptop-checkpoint/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)

func event(id string, ts time.Time, device string, action types.Action) types.Event {
	return types.Event{ID: id, Timestamp: ts, SubjectName: "Person " + id, DeviceID: device, Action: action}
}

func TestComputeEmpty(t *testing.T) {
	stats := Compute(now, nil)

	assert.Equal(t, DefaultPeakHour, stats.PeakHour)
	assert.Equal(t, 0, stats.CurrentlyInside)
	assert.Equal(t, 0, stats.AverageDaily)
	assert.Nil(t, stats.LastActivity)
	assert.NotNil(t, stats.MostActiveDevices)
	assert.Empty(t, stats.MostActiveDevices)
}

func TestComputeCurrentlyInsideNeverNegative(t *testing.T) {
	events := []types.Event{
		event("1", now.Add(-time.Hour), "CA00001", types.ActionExit),
		event("2", now.Add(-2*time.Hour), "CA00002", types.ActionExit),
		event("3", now.Add(-3*time.Hour), "CA00003", types.ActionExit),
	}

	stats := Compute(now, events)
	assert.Equal(t, 3, stats.TodayExits)
	assert.Equal(t, 0, stats.TodayEntries)
	assert.Equal(t, 0, stats.CurrentlyInside)
}

func TestComputeTodayAndWeekly(t *testing.T) {
	events := []types.Event{
		event("1", now.Add(-time.Hour), "CA00001", types.ActionEntry),
		event("2", now.Add(-2*time.Hour), "CA00002", types.ActionEntry),
		event("3", now.Add(-30*time.Minute), "CA00001", types.ActionExit),
		event("4", now.Add(-48*time.Hour), "CA00003", types.ActionEntry),
		event("5", now.Add(-8*24*time.Hour), "CA00004", types.ActionEntry),
	}

	stats := Compute(now, events)
	assert.Equal(t, 2, stats.TodayEntries)
	assert.Equal(t, 1, stats.TodayExits)
	assert.Equal(t, 1, stats.CurrentlyInside)
	assert.Equal(t, 3, stats.WeeklyEntries)
	assert.Equal(t, 5, stats.TotalEvents)
	require.NotNil(t, stats.LastActivity)
	assert.True(t, stats.LastActivity.Equal(now.Add(-30*time.Minute)))
}

func TestComputeTodayUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	localNow := time.Date(2024, 5, 10, 10, 0, 0, 0, loc)

	// 23:00 UTC on the 9th is the morning of the 10th at +10
	ev := event("1", time.Date(2024, 5, 9, 23, 0, 0, 0, time.UTC), "CA00001", types.ActionEntry)

	stats := Compute(localNow, []types.Event{ev})
	assert.Equal(t, 1, stats.TodayEntries)
	assert.Equal(t, 9, stats.PeakHour)

	stats = Compute(localNow.In(time.UTC), []types.Event{ev})
	assert.Equal(t, 0, stats.TodayEntries)
	assert.Equal(t, 23, stats.PeakHour)
}

func TestComputeMostActiveDevices(t *testing.T) {
	counts := []struct {
		device string
		n      int
	}{
		{"D", 1}, {"B", 3}, {"A", 5}, {"C", 3},
	}

	var events []types.Event
	for _, c := range counts {
		for i := 0; i < c.n; i++ {
			events = append(events, event(fmt.Sprintf("%s%d", c.device, i), now.Add(-time.Hour), c.device, types.ActionEntry))
		}
	}

	stats := Compute(now, events)
	ranking := stats.MostActiveDevices
	require.Len(t, ranking, 4)
	assert.Equal(t, DeviceCount{DeviceID: "A", Count: 5}, ranking[0])
	assert.Equal(t, "B", ranking[1].DeviceID)
	assert.Equal(t, "C", ranking[2].DeviceID)
	assert.Equal(t, DeviceCount{DeviceID: "D", Count: 1}, ranking[3])
}

func TestComputeMostActiveDevicesCapped(t *testing.T) {
	var events []types.Event
	for i := 0; i < 8; i++ {
		events = append(events, event(fmt.Sprint(i), now, fmt.Sprintf("CA0000%d", i), types.ActionExit))
	}

	stats := Compute(now, events)
	assert.Len(t, stats.MostActiveDevices, MostActiveLimit)
	for i := 1; i < len(stats.MostActiveDevices); i++ {
		assert.GreaterOrEqual(t, stats.MostActiveDevices[i-1].Count, stats.MostActiveDevices[i].Count)
	}
}

func TestComputePeakHour(t *testing.T) {
	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	events := []types.Event{
		event("1", day.Add(14*time.Hour), "A", types.ActionEntry),
		event("2", day.Add(14*time.Hour+5*time.Minute), "A", types.ActionExit),
		event("3", day.Add(8*time.Hour), "A", types.ActionEntry),
		event("4", day.Add(8*time.Hour+time.Minute), "A", types.ActionExit),
		event("5", day.Add(11*time.Hour), "A", types.ActionEntry),
	}

	// 8 and 14 tie, the earlier hour wins
	assert.Equal(t, 8, Compute(now, events).PeakHour)
}

func TestComputeAverageDailyIgnoresOrder(t *testing.T) {
	events := []types.Event{
		event("1", now.Add(-10*24*time.Hour), "A", types.ActionEntry),
		event("2", now.Add(-time.Hour), "A", types.ActionEntry),
		event("3", now.Add(-2*time.Hour), "A", types.ActionExit),
		event("4", now.Add(-3*time.Hour), "A", types.ActionEntry),
		event("5", now.Add(-4*time.Hour), "A", types.ActionExit),
	}

	// 5 events over 10 days
	assert.Equal(t, 1, Compute(now, events).AverageDaily)

	reversed := make([]types.Event, len(events))
	for i, ev := range events {
		reversed[len(events)-1-i] = ev
	}
	assert.Equal(t, 1, Compute(now, reversed).AverageDaily)

	// everything within the last day divides by one
	assert.Equal(t, 4, Compute(now, events[1:]).AverageDaily)
}

func TestComputeVisitors(t *testing.T) {
	events := []types.Event{
		{ID: "1", Timestamp: now.Add(-time.Hour), SubjectName: types.Visitor("Ann", "John Smith").String(), DeviceID: "V1", Action: types.ActionEntry},
		{ID: "2", Timestamp: now.Add(-50 * time.Hour), SubjectName: types.Visitor("Bob", "").String(), DeviceID: "V2", Action: types.ActionEntry},
		{ID: "3", Timestamp: now.Add(-time.Hour), SubjectName: "John Smith", DeviceID: "12345", Action: types.ActionEntry},
	}

	stats := Compute(now, events)
	assert.Equal(t, 2, stats.TotalVisitors)
	assert.Equal(t, 1, stats.TodayVisitors)
}

func TestFormatPeakHour(t *testing.T) {
	tests := map[int]string{
		0:  "12:00 AM",
		9:  "9:00 AM",
		12: "12:00 PM",
		13: "1:00 PM",
		23: "11:00 PM",
	}
	for hour, want := range tests {
		assert.Equal(t, want, FormatPeakHour(hour))
	}
}

func TestFilterApply(t *testing.T) {
	events := []types.Event{
		{ID: "1", SubjectName: "John Smith", DeviceID: "CA00001", Action: types.ActionEntry},
		{ID: "2", SubjectName: "Jane Doe", DeviceID: "CA00002", Action: types.ActionExit},
		{ID: "3", SubjectName: "Bob Johnson", DeviceID: "XY12345", Action: types.ActionEntry},
	}

	assert.Len(t, Filter{}.Apply(events), 3)

	got := Filter{Query: "john"}.Apply(events)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "3", got[1].ID)

	got = Filter{Query: "xy1"}.Apply(events)
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].ID)

	got = Filter{Query: "JOHN", Action: types.ActionEntry}.Apply(events)
	assert.Len(t, got, 2)

	got = Filter{Action: types.ActionExit}.Apply(events)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}

func TestSort(t *testing.T) {
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	events := []types.Event{
		{ID: "1", Timestamp: base.Add(2 * time.Minute), SubjectName: "bob"},
		{ID: "2", Timestamp: base, SubjectName: "Alice"},
		{ID: "3", Timestamp: base.Add(time.Minute), SubjectName: "Carol"},
	}

	Sort(events, SortByTimestamp, Descending)
	assert.Equal(t, []string{"1", "3", "2"}, ids(events))

	Sort(events, SortByTimestamp, Ascending)
	assert.Equal(t, []string{"2", "3", "1"}, ids(events))

	Sort(events, SortByName, Ascending)
	assert.Equal(t, []string{"2", "1", "3"}, ids(events))

	Sort(events, SortByName, Descending)
	assert.Equal(t, []string{"3", "1", "2"}, ids(events))
}

func TestParseSortOptions(t *testing.T) {
	field, ok := ParseSortField("NAME")
	assert.True(t, ok)
	assert.Equal(t, SortByName, field)

	_, ok = ParseSortField("device")
	assert.False(t, ok)

	order, ok := ParseSortOrder("")
	assert.True(t, ok)
	assert.Equal(t, Descending, order)

	_, ok = ParseSortOrder("up")
	assert.False(t, ok)
}

func ids(events []types.Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.ID
	}
	return out
}

func TestExportCSV(t *testing.T) {
	events := []types.Event{
		{Timestamp: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC), SubjectName: "John Smith", DeviceID: "12345", Action: types.ActionEntry},
		{Timestamp: time.Date(2024, 5, 1, 17, 0, 0, 0, time.UTC), SubjectName: "John Smith", DeviceID: "12345", Action: types.ActionExit},
	}

	want := "Timestamp,Employee Name,Device ID,Action\n" +
		"2024-05-01T09:30:00.000Z,John Smith,12345,entry\n" +
		"2024-05-01T17:00:00.000Z,John Smith,12345,exit"
	assert.Equal(t, want, ExportCSV(events))

	assert.Equal(t, CSVHeader+"\n", ExportCSV(nil))
}

func TestCSVRoundTrip(t *testing.T) {
	var events []types.Event
	for i := 0; i < 25; i++ {
		events = append(events, types.Event{
			ID:          fmt.Sprint(i),
			Timestamp:   now.Add(-time.Duration(i) * time.Hour),
			SubjectName: fmt.Sprintf("Person %d", i),
			DeviceID:    fmt.Sprintf("CA%05d", i),
			Action:      types.ActionEntry,
		})
	}

	rows, err := ParseCSV(ExportCSV(events))
	require.NoError(t, err)
	require.Len(t, rows, len(events))
	for i, row := range rows {
		assert.Equal(t, events[i].DeviceID, row.DeviceID)
		assert.Equal(t, events[i].SubjectName, row.EmployeeName)
		assert.True(t, events[i].Timestamp.Equal(row.Timestamp))
	}

	rows, err = ParseCSV(ExportCSV(nil))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParseCSVCommaInName(t *testing.T) {
	events := []types.Event{{Timestamp: now, SubjectName: "Smith, John", DeviceID: "12345", Action: types.ActionEntry}}

	_, err := ParseCSV(ExportCSV(events))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "expected 4 fields"))
}

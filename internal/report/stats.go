// Package report computes checkpoint statistics and renders exports from a
// full snapshot of the event log. Nothing here keeps state between calls.
package report

import (
	"fmt"
	"math"
	"sort"
	"time"

	"laptop-checkpoint/internal/types"
)

const (
	// DefaultPeakHour is reported when there are no events
	DefaultPeakHour = 9
	// MostActiveLimit caps the device ranking
	MostActiveLimit = 5
)

// DeviceCount is one row of the device ranking
type DeviceCount struct {
	DeviceID string `json:"deviceId"`
	Count    int    `json:"count"`
}

// Stats is the checkpoint summary shown on the reports screen
type Stats struct {
	TodayEntries      int           `json:"todayEntries"`
	TodayExits        int           `json:"todayExits"`
	CurrentlyInside   int           `json:"currentlyInside"`
	WeeklyEntries     int           `json:"weeklyEntries"`
	MostActiveDevices []DeviceCount `json:"mostActiveDevices"`
	PeakHour          int           `json:"peakHour"`
	AverageDaily      int           `json:"averageDaily"`
	LastActivity      *time.Time    `json:"lastActivity,omitempty"`
	TotalEvents       int           `json:"totalEvents"`
	TotalVisitors     int           `json:"totalVisitors"`
	TodayVisitors     int           `json:"todayVisitors"`
}

// Compute derives Stats from events as of now. Calendar days and hours are
// taken in now's location. The order of events does not matter.
func Compute(now time.Time, events []types.Event) Stats {
	stats := Stats{
		MostActiveDevices: []DeviceCount{},
		PeakHour:          DefaultPeakHour,
		TotalEvents:       len(events),
	}
	if len(events) == 0 {
		return stats
	}

	loc := now.Location()
	weekAgo := now.Add(-7 * 24 * time.Hour)

	var hourCounts [24]int
	deviceCounts := make(map[string]int)
	var deviceOrder []string

	oldest := events[0].Timestamp
	newest := events[0].Timestamp

	for _, ev := range events {
		today := sameDay(ev.Timestamp.In(loc), now)
		visitor := types.ParseSubject(ev.SubjectName).IsVisitor()

		switch ev.Action {
		case types.ActionEntry:
			if today {
				stats.TodayEntries++
			}
			if !ev.Timestamp.Before(weekAgo) {
				stats.WeeklyEntries++
			}
			if visitor {
				stats.TotalVisitors++
				if today {
					stats.TodayVisitors++
				}
			}
		case types.ActionExit:
			if today {
				stats.TodayExits++
			}
		}

		if _, seen := deviceCounts[ev.DeviceID]; !seen {
			deviceOrder = append(deviceOrder, ev.DeviceID)
		}
		deviceCounts[ev.DeviceID]++

		hourCounts[ev.Timestamp.In(loc).Hour()]++

		if ev.Timestamp.Before(oldest) {
			oldest = ev.Timestamp
		}
		if ev.Timestamp.After(newest) {
			newest = ev.Timestamp
		}
	}

	if stats.TodayEntries > stats.TodayExits {
		stats.CurrentlyInside = stats.TodayEntries - stats.TodayExits
	}

	ranking := make([]DeviceCount, 0, len(deviceOrder))
	for _, id := range deviceOrder {
		ranking = append(ranking, DeviceCount{DeviceID: id, Count: deviceCounts[id]})
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Count > ranking[j].Count
	})
	if len(ranking) > MostActiveLimit {
		ranking = ranking[:MostActiveLimit]
	}
	stats.MostActiveDevices = ranking

	// ties go to the earliest hour
	best := 0
	for h := 1; h < len(hourCounts); h++ {
		if hourCounts[h] > hourCounts[best] {
			best = h
		}
	}
	stats.PeakHour = best

	days := math.Ceil(float64(now.Sub(oldest)) / float64(24*time.Hour))
	stats.AverageDaily = int(math.Round(float64(len(events)) / math.Max(1, days)))

	last := newest
	stats.LastActivity = &last

	return stats
}

func sameDay(t, now time.Time) bool {
	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// FormatPeakHour renders an hour of day as "9:00 AM"
func FormatPeakHour(hour int) string {
	period := "AM"
	if hour >= 12 {
		period = "PM"
	}
	display := hour
	switch {
	case hour == 0:
		display = 12
	case hour > 12:
		display = hour - 12
	}
	return fmt.Sprintf("%d:00 %s", display, period)
}

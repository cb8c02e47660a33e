package report

import (
	"fmt"
	"strings"
	"time"

	"laptop-checkpoint/internal/types"
)

// CSVHeader is the first line of every export
const CSVHeader = "Timestamp,Employee Name,Device ID,Action"

// csvTimeFormat matches the millisecond UTC timestamps of earlier exports
const csvTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ExportCSV renders events one row per event. Fields are joined with commas
// and never quoted, so a comma inside a name shifts that row's columns.
func ExportCSV(events []types.Event) string {
	rows := make([]string, 0, len(events))
	for _, ev := range events {
		rows = append(rows, strings.Join([]string{
			ev.Timestamp.UTC().Format(csvTimeFormat),
			ev.SubjectName,
			ev.DeviceID,
			string(ev.Action),
		}, ","))
	}
	return CSVHeader + "\n" + strings.Join(rows, "\n")
}

// Row is one parsed export line
type Row struct {
	Timestamp    time.Time
	EmployeeName string
	DeviceID     string
	Action       types.Action
}

// ParseCSV reads an export back. The header line and blank lines are skipped.
func ParseCSV(data string) ([]Row, error) {
	lines := strings.Split(strings.ReplaceAll(data, "\r\n", "\n"), "\n")

	var rows []Row
	for i, line := range lines {
		if i == 0 && line == CSVHeader {
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) != 4 {
			return nil, fmt.Errorf("line %d: expected 4 fields, got %d", i+1, len(fields))
		}

		ts, err := time.Parse(time.RFC3339Nano, fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid timestamp: %w", i+1, err)
		}

		rows = append(rows, Row{
			Timestamp:    ts,
			EmployeeName: fields[1],
			DeviceID:     fields[2],
			Action:       types.Action(fields[3]),
		})
	}
	return rows, nil
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"laptop-checkpoint/internal/checkpoint"
	"laptop-checkpoint/internal/report"
	"laptop-checkpoint/internal/types"

	"github.com/spf13/cobra"
)

var (
	logSearch  string
	logAction  string
	logSort    string
	logOrder   string
	reportJSON bool
	exportPath string
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "List recorded events",
	RunE:  runLog,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show checkpoint statistics",
	RunE:  runReport,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every event as CSV",
	RunE:  runExport,
}

func init() {
	logCmd.Flags().StringVarP(&logSearch, "search", "s", "", "match against name or device id")
	logCmd.Flags().StringVarP(&logAction, "action", "a", "", "only entry or exit events")
	logCmd.Flags().StringVar(&logSort, "sort", string(report.SortByTimestamp), "sort by timestamp or name")
	logCmd.Flags().StringVar(&logOrder, "order", string(report.Descending), "asc or desc")

	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print statistics as JSON")

	exportCmd.Flags().StringVarP(&exportPath, "output", "o", "", "write to this file instead of stdout")

	rootCmd.AddCommand(logCmd, reportCmd, exportCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	query, err := entriesQuery(logSearch, logAction, logSort, logOrder)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	events, err := a.service.Entries(cmd.Context(), query)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintln(out, "No events found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tNAME\tDEVICE\tACTION")
	for _, ev := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			ev.ID, ev.Timestamp.Local().Format("2006-01-02 15:04:05"), ev.SubjectName, ev.DeviceID, ev.Action)
	}
	return w.Flush()
}

// entriesQuery validates the log flags
func entriesQuery(search, action, sortBy, order string) (checkpoint.EntriesQuery, error) {
	q := checkpoint.EntriesQuery{Filter: report.Filter{Query: search}}

	if action != "" {
		parsed, err := types.ParseAction(action)
		if err != nil {
			return q, err
		}
		q.Filter.Action = parsed
	}

	field, ok := report.ParseSortField(sortBy)
	if !ok {
		return q, fmt.Errorf("invalid sort field %q: use timestamp or name", sortBy)
	}
	q.SortBy = field

	dir, ok := report.ParseSortOrder(order)
	if !ok {
		return q, fmt.Errorf("invalid sort order %q: use asc or desc", order)
	}
	q.Order = dir

	return q, nil
}

func runReport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.service.Report(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if reportJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Entries today:\t%d\n", stats.TodayEntries)
	fmt.Fprintf(w, "Exits today:\t%d\n", stats.TodayExits)
	fmt.Fprintf(w, "Currently inside:\t%d\n", stats.CurrentlyInside)
	fmt.Fprintf(w, "Entries this week:\t%d\n", stats.WeeklyEntries)
	fmt.Fprintf(w, "Average daily entries:\t%d\n", stats.AverageDaily)
	fmt.Fprintf(w, "Peak hour:\t%s\n", report.FormatPeakHour(stats.PeakHour))
	fmt.Fprintf(w, "Visitors today:\t%d\n", stats.TodayVisitors)
	fmt.Fprintf(w, "Visitors total:\t%d\n", stats.TotalVisitors)
	fmt.Fprintf(w, "Total events:\t%d\n", stats.TotalEvents)
	if stats.LastActivity != nil {
		fmt.Fprintf(w, "Last activity:\t%s\n", stats.LastActivity.Local().Format("2006-01-02 15:04:05"))
	}
	for i, d := range stats.MostActiveDevices {
		fmt.Fprintf(w, "Most active #%d:\t%s (%d)\n", i+1, d.DeviceID, d.Count)
	}
	return w.Flush()
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	csv, err := a.service.Export(cmd.Context())
	if err != nil {
		return err
	}

	if exportPath == "" {
		fmt.Fprintln(cmd.OutOrStdout(), csv)
		return nil
	}

	if err := os.WriteFile(exportPath, []byte(csv+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported events to %s\n", exportPath)
	return nil
}

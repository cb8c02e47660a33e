package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"laptop-checkpoint/internal/types"

	"github.com/spf13/cobra"
)

var (
	scanAction  string
	bulkAction  string
	bulkEvent   string
	visitorName string
	visitorHost string
	visitorID   string
	clearYes    bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <barcode>",
	Short: "Record a laptop passing the checkpoint",
	Long: `Record a single check-in or check-out. The barcode is the laptop's
device id (two letters followed by five digits, e.g. CA02528).`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

var bulkCmd = &cobra.Command{
	Use:   "bulk <device-id>...",
	Short: "Record the same action for several laptops at once",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBulk,
}

var visitorCmd = &cobra.Command{
	Use:   "visitor",
	Short: "Register a visitor laptop entering the building",
	RunE:  runVisitor,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <event-id>",
	Short: "Delete one recorded event",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every recorded event",
	RunE:  runClear,
}

func init() {
	scanCmd.Flags().StringVarP(&scanAction, "action", "a", string(types.ActionEntry), "entry or exit")

	bulkCmd.Flags().StringVarP(&bulkAction, "action", "a", string(types.ActionEntry), "entry or exit")
	bulkCmd.Flags().StringVar(&bulkEvent, "event", "", "event name attached to every record")

	visitorCmd.Flags().StringVar(&visitorName, "name", "", "visitor name (required)")
	visitorCmd.Flags().StringVar(&visitorHost, "host", "", "employee hosting the visitor (default Unknown)")
	visitorCmd.Flags().StringVar(&visitorID, "device", "", "visitor laptop id (required)")
	visitorCmd.MarkFlagRequired("name")
	visitorCmd.MarkFlagRequired("device")

	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip the confirmation prompt")

	rootCmd.AddCommand(scanCmd, bulkCmd, visitorCmd, deleteCmd, clearCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	action, err := types.ParseAction(scanAction)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ev, err := a.service.Scan(cmd.Context(), args[0], action)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s %s (%s)\n",
		ev.Timestamp.Local().Format("15:04:05"), ev.SubjectName, actionVerb(ev.Action), ev.DeviceID)
	return nil
}

func runBulk(cmd *cobra.Command, args []string) error {
	action, err := types.ParseAction(bulkAction)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	events, err := a.service.Bulk(cmd.Context(), args, action, bulkEvent)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, ev := range events {
		fmt.Fprintf(out, "%s\t%s\t%s\n", ev.DeviceID, ev.SubjectName, ev.Action)
	}
	fmt.Fprintf(out, "Recorded %d %s events\n", len(events), action)
	return nil
}

func runVisitor(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ev, err := a.service.RegisterVisitor(cmd.Context(), visitorName, visitorHost, visitorID)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Visitor registered: %s (%s)\n", ev.SubjectName, ev.DeviceID)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.service.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted event %s\n", args[0])
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	if !clearYes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Delete every recorded event?") {
		fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
		return nil
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.service.ClearAll(cmd.Context()); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "All events deleted")
	return nil
}

// confirm asks a yes/no question; anything but y or yes is a no
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func actionVerb(a types.Action) string {
	if a == types.ActionExit {
		return "checked out"
	}
	return "checked in"
}

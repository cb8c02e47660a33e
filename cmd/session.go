package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the checkpoint service",
	Long: `Sign in to the checkpoint service. The issued tokens are kept in the
local database and refreshed automatically by later commands.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored tokens",
	RunE:  runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check that the checkpoint service is reachable",
	RunE:  runStatus,
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email (required)")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password (required)")
	loginCmd.MarkFlagRequired("email")
	loginCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(loginCmd, logoutCmd, statusCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireClient(); err != nil {
		return err
	}

	user, err := a.client.Login(cmd.Context(), loginEmail, loginPassword)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", user.Email, user.Role)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireClient(); err != nil {
		return err
	}

	if err := a.client.Logout(cmd.Context()); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireClient(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	start := time.Now()
	if err := a.client.CheckConnectivity(cmd.Context()); err != nil {
		fmt.Fprintf(out, "Service %s is unreachable: %v\n", a.cfg.ServerURL, err)
		fmt.Fprintln(out, "Events will be recorded locally")
		return nil
	}
	fmt.Fprintf(out, "Service %s is reachable (%s)\n", a.cfg.ServerURL, time.Since(start).Round(time.Millisecond))

	stats, err := a.client.GetLogStats(cmd.Context())
	if err != nil {
		fmt.Fprintf(out, "Statistics unavailable: %v\n", err)
		return nil
	}
	fmt.Fprintf(out, "Total logs: %d, entries today: %d, exits today: %d\n",
		stats.TotalLogs, stats.EntriesToday, stats.ExitsToday)
	return nil
}

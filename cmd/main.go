package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
	offline    bool
)

var rootCmd = &cobra.Command{
	Use:   "laptop-checkpoint",
	Short: "Laptop Checkpoint - record laptops entering and leaving the building",
	Long: `Records check-in and check-out events of laptops carried through a
building checkpoint. Events are written to the checkpoint service when it is
reachable and to the local database otherwise, so scanning never stops when
the network does.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "use the local database only and never contact the service")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

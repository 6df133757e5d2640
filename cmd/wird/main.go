package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ldi/wird/internal/config"
	"github.com/ldi/wird/internal/logging"
	"github.com/ldi/wird/internal/ui"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    config.Config
	logger *zap.Logger

	// runMenu is swapped out in tests.
	runMenu = ui.RunMenu
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wird",
		Short: "Wird - daily worship habit tracker",
		Long: `Wird keeps a catalog of recurring devotional tasks, records which ones
were completed on each day and grades consistency over a week, a month or
all time.

Run without arguments to pick a command from the interactive menu.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			logger, err = logging.New(cfg.Logging, verbose)
			if err != nil {
				return err
			}
			logger.Debug("config loaded", zap.String("path", configPath), zap.String("backend", cfg.Storage.Backend))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			selected, err := runMenu()
			if err != nil {
				return fmt.Errorf("menu failed: %w", err)
			}
			if selected == "" {
				return nil
			}
			sub, _, err := cmd.Find([]string{selected})
			if err != nil || sub == cmd {
				return fmt.Errorf("unknown command: %s", selected)
			}
			sub.SetContext(cmd.Context())
			return sub.RunE(sub, nil)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(
		newInitCmd(),
		newTasksCmd(),
		newStatusCmd(),
		newAddCmd(),
		newDeleteCmd(),
		newToggleCmd(),
		newStatsCmd(),
		newReportCmd(),
		newCleanupCmd(),
		newTrackCmd(),
		newWebCmd(),
		newMCPCmd(),
		newExportCmd(),
		newImportCmd(),
		newQiblaCmd(),
	)
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

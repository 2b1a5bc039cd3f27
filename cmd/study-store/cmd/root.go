package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/study-store/internal/config"
	"github.com/oshokin/study-store/internal/service/tracker"
	"github.com/oshokin/study-store/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// backend overrides the configured backend.
	backend string
	// directory overrides the configured save directory.
	directory string
	// debounce groups file events in watch mode.
	debounce time.Duration

	// rootCmd represents the base command.
	rootCmd = &cobra.Command{
		Use:   "study-store",
		Short: "Persist studies and their option counters.",
		Long: `Records studies (named sets of options with taken/encountered counters) and
reads them back from a directory of JSON files or a SQLite preference database.

Settings come from a YAML file, STUDY_STORE_* environment variables and flags,
in increasing priority.`,
		SilenceUsage: true,
	}

	recordCmd = &cobra.Command{
		Use:   "record <study> [option=taken/encountered]...",
		Short: "Save a study with explicit option counters.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return tracker.RunRecord(cmd.Context(), options(cmd), args[0], args[1:])
		},
	}

	observeCmd = &cobra.Command{
		Use:   "observe <study> <taken> [offered]...",
		Short: "Count one decision: the taken option and the other offered options.",
		Long: `Increments "encountered" for the taken option and every offered option, and
"taken" for the taken option. Pass "" as the taken option to record an
encounter where nothing was chosen.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return tracker.RunObserve(cmd.Context(), options(cmd), args[0], args[1], args[2:])
		},
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Print every stored study.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return tracker.RunList(cmd.Context(), options(cmd))
		},
	}

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Print the stored studies whenever the save directory changes (file backend).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return tracker.RunWatch(cmd.Context(), options(cmd), debounce)
		},
	}
)

func options(cmd *cobra.Command) *tracker.Options {
	return &tracker.Options{
		ConfigPath: configPath,
		Backend:    backend,
		Directory:  directory,
		Output:     cmd.OutOrStdout(),
	}
}

// Execute runs the study-store CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", "", "path to configuration file (default "+config.DefaultConfigFilename+" if present)")
	rootCmd.PersistentFlags().StringVarP(&backend, "backend", "b", "", "storage backend: file or sqlite")
	rootCmd.PersistentFlags().StringVarP(&directory, "directory", "d", "", "save directory of the file backend")
	watchCmd.Flags().DurationVar(&debounce, "debounce", tracker.DefaultWatchDebounce, "delay before reloading after a change")

	rootCmd.AddCommand(recordCmd, observeCmd, listCmd, watchCmd)
}

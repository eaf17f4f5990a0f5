// Package cmd implements the vibetorch command line.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/vibetorch/internal/config"
)

// Set at build time with -ldflags.
var (
	Version   = "0.1.0-dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var (
	cfgFile string
	debug   bool
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vibetorch",
		Short:         "Inspect page elements and hand their context to your tools",
		Long:          "vibetorch attaches an element inspector to a page, pins elements, and exports their selectors, styles and component sources as JSON.",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(os.Stderr)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $VIBETORCH_CONFIG or ~/.vibetorch/config.json5)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(
		inspectCmd(),
		serveCmd(),
		analyzeCmd(),
		historyCmd(),
		mcpCmd(),
		configCmd(),
		doctorCmd(),
		versionCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func resolveConfigPath() string {
	if cfgFile != "" {
		return config.ExpandHome(cfgFile)
	}
	return config.DefaultPath()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, err
	}
	if cfg.Debug && !debug {
		debug = true
		setupLogging(os.Stderr)
	}
	return cfg, nil
}

func debugEnabled() bool {
	return debug || os.Getenv("DEBUG_VIBETORCH") != ""
}

func setupLogging(w *os.File) {
	level := slog.LevelInfo
	if debugEnabled() {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vibetorch %s (commit: %s, built: %s)\n", Version, Commit, BuildDate)
		},
	}
}

// Package cli implements the buildsize command-line interface.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/albertocavalcante/buildsize/internal/log"
	"github.com/albertocavalcante/buildsize/pkg/config"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// globalFlags holds persistent flags that apply to all commands
var globalFlags struct {
	verbosity  int
	logFormat  string
	configFile string
	dir        string
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "buildsize",
	Short: "Bundle with esbuild and report asset sizes",
	Long: `Buildsize runs esbuild and, just before the output is written,
adds a build-size.json report listing the byte size of every emitted
asset and their total.

Use 'buildsize report' to measure an existing output directory and
'buildsize diff' to compare two reports.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "buildsize %s (%s)\n", Version, GitCommit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().IntVarP(&globalFlags.verbosity, "verbosity", "v", 1,
		"Verbosity level (0=error, 1=warn, 2=info, 3=debug, 4=trace)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.logFormat, "log-format", "text",
		"Log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.configFile, "config", "",
		"Config file to use instead of the layered buildsize.toml lookup")
	rootCmd.PersistentFlags().StringVarP(&globalFlags.dir, "dir", "C", "",
		"Project directory (defaults to the current directory)")

	cobra.OnInitialize(initLogging)
}

// initLogging applies CLI flags to the logger.
// This runs after flags are parsed but before command execution.
func initLogging() {
	log.SetVerbosity(globalFlags.verbosity)
	if globalFlags.logFormat != "" {
		log.Init(globalFlags.verbosity, globalFlags.logFormat)
	}
}

// projectDir returns the absolute project directory.
func projectDir() (string, error) {
	if globalFlags.dir == "" {
		return os.Getwd()
	}
	dir, err := filepath.Abs(globalFlags.dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project directory: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("invalid project directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project path must be a directory: %s", dir)
	}
	return dir, nil
}

// loadConfig returns the configuration for dir. An explicit --config file
// replaces the project layers but environment variables still apply.
func loadConfig(dir string) (*config.Config, error) {
	if globalFlags.configFile != "" {
		return config.LoadWithFile(globalFlags.configFile)
	}
	return config.LoadFrom(dir), nil
}

func outputJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// RootCmd returns the root command for testing.
func RootCmd() *cobra.Command {
	return rootCmd
}

package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/albertocavalcante/buildsize/cmd/buildsize/internal/detect"
	"github.com/albertocavalcante/buildsize/pkg/config"
	"github.com/spf13/cobra"
)

var initFlags struct {
	entries []string
	outdir  string
	check   bool
	dryRun  bool
	force   bool
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Create a buildsize.toml for the project",
	Long: `Creates buildsize.toml with the detected entry points and the default
build and report settings.

Use --check to verify that a usable config exists (useful for CI).
Use --dry-run to print the file without writing it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringSliceVar(&initFlags.entries, "entry", nil,
		"Entry points (auto-detected if not specified)")
	initCmd.Flags().StringVar(&initFlags.outdir, "outdir", "",
		"Output directory (default \"dist\")")
	initCmd.Flags().BoolVar(&initFlags.check, "check", false,
		"Check that the project is configured (exit 1 if not)")
	initCmd.Flags().BoolVar(&initFlags.dryRun, "dry-run", false,
		"Show the file without writing it")
	initCmd.Flags().BoolVar(&initFlags.force, "force", false,
		"Overwrite an existing buildsize.toml")

	rootCmd.AddCommand(initCmd)
}

// generateConfig returns the initial config for a project.
func generateConfig(entries []string, outdir string) ([]byte, error) {
	cfg := config.NewConfig()
	cfg.Build.EntryPoints = entries
	if outdir != "" {
		cfg.Build.Outdir = outdir
	}

	body, err := config.Encode(cfg)
	if err != nil {
		return nil, err
	}
	header := "# buildsize configuration. See 'buildsize build --help'.\n\n"
	return append([]byte(header), body...), nil
}

// checkConfig returns the problems that keep the project at path from
// building with its current configuration.
func checkConfig(path string) []string {
	var issues []string

	configFile := filepath.Join(path, config.ConfigFileName)
	if !fileExists(configFile) {
		issues = append(issues, fmt.Sprintf("%s not found at %s", config.ConfigFileName, configFile))
		return issues
	}

	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return append(issues, err.Error())
	}
	for _, e := range cfg.Build.EntryPoints {
		if !fileExists(filepath.Join(path, filepath.FromSlash(e))) {
			issues = append(issues, fmt.Sprintf("entry point %s does not exist", e))
		}
	}
	if len(cfg.Build.EntryPoints) == 0 {
		if entries, _ := detect.EntryPoints(path); len(entries) == 0 {
			issues = append(issues, "no entry points configured or detected")
		}
	}
	return issues
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func runInit(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	w := cmd.OutOrStdout()

	if initFlags.check {
		issues := checkConfig(absPath)
		if len(issues) == 0 {
			fmt.Fprintln(w, "Project is properly configured")
			return nil
		}
		errw := cmd.ErrOrStderr()
		fmt.Fprintln(errw, "Project configuration issues:")
		for _, issue := range issues {
			fmt.Fprintf(errw, "  - %s\n", issue)
		}
		fmt.Fprintln(errw, "\nRun 'buildsize init' to fix")
		return errors.New("project is not configured")
	}

	entries := initFlags.entries
	if len(entries) == 0 {
		if entries, err = detect.EntryPoints(absPath); err != nil {
			return fmt.Errorf("failed to detect entry points: %w", err)
		}
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No entry points detected. Use --entry to specify them.")
		return nil
	}
	fmt.Fprintf(w, "Entry points: %s\n", strings.Join(entries, ", "))

	content, err := generateConfig(entries, initFlags.outdir)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	configFile := filepath.Join(absPath, config.ConfigFileName)
	exists := fileExists(configFile)

	if initFlags.dryRun {
		if exists && !initFlags.force {
			fmt.Fprintf(w, "%s exists (would not modify)\n", configFile)
			return nil
		}
		fmt.Fprintf(w, "Would create %s:\n%s", configFile, content)
		return nil
	}

	if exists && !initFlags.force {
		fmt.Fprintf(w, "%s already exists (use --force to overwrite)\n", config.ConfigFileName)
		return nil
	}
	if err := os.WriteFile(configFile, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", config.ConfigFileName, err)
	}
	fmt.Fprintf(w, "Created %s\n", configFile)

	fmt.Fprintln(w, "\nNext steps:")
	fmt.Fprintln(w, "  1. Review the build settings in buildsize.toml")
	fmt.Fprintln(w, "  2. Run 'buildsize build' to bundle and write the size report")
	return nil
}

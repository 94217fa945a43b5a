package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/albertocavalcante/buildsize/internal/log"
)

// ConfigFileName is the name of the project-level config file.
const ConfigFileName = "buildsize.toml"

// ConfigDirName is the name of the project-level config directory.
const ConfigDirName = ".buildsize"

// GlobalConfigDir is the name of the global config directory inside user's config.
const GlobalConfigDir = "buildsize"

// LoadFrom loads configuration for dir from all layers in order of precedence:
//  1. Built-in defaults
//  2. Global user config (~/.config/buildsize/config.toml)
//  3. Project config (.buildsize/config.toml or buildsize.toml), searched upward from dir
//  4. Environment variables (BUILDSIZE_*)
//
// CLI flags are applied separately after LoadFrom returns.
func LoadFrom(dir string) *Config {
	cfg := NewConfig()

	// Layer 2: Global user config
	cfg.Merge(loadGlobalConfig())

	// Layer 3: Project config from specified directory
	cfg.Merge(loadProjectConfigFrom(dir))

	// Layer 4: Environment variables
	applyEnvironmentVariables(cfg)

	return cfg
}

// LoadWithFile is LoadFrom with an explicit project config file in place of
// the directory search. Unlike the implicit layers, a bad file is an error.
func LoadWithFile(path string) (*Config, error) {
	fileCfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := NewConfig()
	cfg.Merge(loadGlobalConfig())
	cfg.Merge(fileCfg)
	applyEnvironmentVariables(cfg)
	return cfg, nil
}

// LoadFile decodes a single TOML file. Unknown keys are rejected.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return &cfg, nil
}

// loadGlobalConfig loads the global user configuration from ~/.config/buildsize/config.toml.
func loadGlobalConfig() *Config {
	path := GetGlobalConfigPath()
	if path == "" {
		return nil
	}
	return loadConfigFile(path)
}

// loadProjectConfigFrom looks for project configuration starting from the given directory.
func loadProjectConfigFrom(dir string) *Config {
	// Search up the directory tree for config files
	current := dir
	for {
		for _, path := range GetProjectConfigPaths(current) {
			if cfg := loadConfigFile(path); cfg != nil {
				return cfg
			}
		}

		// Stop at filesystem root or workspace root
		if isWorkspaceRoot(current) {
			break
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return nil
}

// isWorkspaceRoot checks if the directory is a workspace root (has .git or package.json).
func isWorkspaceRoot(dir string) bool {
	markers := []string{".git", "package.json"}
	for _, marker := range markers {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

// loadConfigFile loads an implicit config layer. Missing files are skipped
// silently; broken ones are skipped with a warning.
func loadConfigFile(path string) *Config {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	cfg, err := LoadFile(path)
	if err != nil {
		log.Warn("ignoring config file", "path", path, "error", err)
		return nil
	}
	return cfg
}

// applyEnvironmentVariables applies BUILDSIZE_* environment variables to the config.
func applyEnvironmentVariables(cfg *Config) {
	// BUILDSIZE_ENTRY_POINTS: comma-separated list of entry files
	if v := os.Getenv("BUILDSIZE_ENTRY_POINTS"); v != "" {
		cfg.Build.EntryPoints = splitAndTrim(v)
	}
	if v := os.Getenv("BUILDSIZE_OUTDIR"); v != "" {
		cfg.Build.Outdir = v
	}
	applyBoolEnv("BUILDSIZE_MINIFY", &cfg.Build.Minify)

	// Report settings
	applyBoolEnv("BUILDSIZE_REPORT_ENABLED", &cfg.Report.Enabled)
	if v := os.Getenv("BUILDSIZE_REPORT_FILENAME"); v != "" {
		cfg.Report.Filename = v
	}
	if v := os.Getenv("BUILDSIZE_REPORT_TAB_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Report.TabSize = n
		} else {
			log.Warn("ignoring BUILDSIZE_REPORT_TAB_SIZE", "value", v, "error", err)
		}
	}
	if v := os.Getenv("BUILDSIZE_REPORT_ON_CONFLICT"); v != "" {
		cfg.Report.OnConflict = v
	}

	applyBoolEnv("BUILDSIZE_MANIFEST_ENABLED", &cfg.Manifest.Enabled)
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// applyBoolEnv applies a boolean environment variable to a pointer.
func applyBoolEnv(envVar string, target **bool) {
	if v := os.Getenv(envVar); v != "" {
		v = strings.ToLower(v)
		if v == "true" || v == "1" || v == "yes" {
			t := true
			*target = &t
		} else if v == "false" || v == "0" || v == "no" {
			f := false
			*target = &f
		}
	}
}

// GetGlobalConfigPath returns the path to the global config file.
func GetGlobalConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(configDir, GlobalConfigDir, "config.toml")
}

// GetProjectConfigPaths returns potential project config paths for a given directory.
func GetProjectConfigPaths(dir string) []string {
	return []string{
		filepath.Join(dir, ConfigDirName, "config.toml"),
		filepath.Join(dir, ConfigFileName),
	}
}

// Encode writes cfg as TOML.
func Encode(cfg *Config) ([]byte, error) {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

// cmd/ourpkgversion/config.go
package main

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// projectConfigName is looked up in the distribution root and layered over
// the user config.
const projectConfigName = ".ourpkgversion.toml"

// Config holds the configurable settings. Pointer fields distinguish "unset"
// from the zero value so that layers only override what they mention.
type Config struct {
	Version               *string  `toml:"version" yaml:"version"`
	Trial                 *bool    `toml:"trial" yaml:"trial"`
	Overwrite             *bool    `toml:"overwrite" yaml:"overwrite"`
	UnderscoreEvalVersion *bool    `toml:"underscore_eval_version" yaml:"underscore_eval_version"`
	ScanDirs              []string `toml:"scan_dirs" yaml:"scan_dirs"`
	ExecutableDirs        []string `toml:"executable_dirs" yaml:"executable_dirs"`
	IncludeExtensions     []string `toml:"include_extensions" yaml:"include_extensions"`
	ExcludeBasenames      []string `toml:"exclude_basenames" yaml:"exclude_basenames"`
	ExcludePatterns       []string `toml:"exclude_patterns" yaml:"exclude_patterns"`
	UseGitignore          *bool    `toml:"use_gitignore" yaml:"use_gitignore"`
	SkipMainModule        *bool    `toml:"skip_main_module" yaml:"skip_main_module"`
	MainModule            *string  `toml:"main_module" yaml:"main_module"`
	Jobs                  *int     `toml:"jobs" yaml:"jobs"`
}

func ptr[T any](v T) *T { return &v }

var defaultConfig = Config{
	Version:               ptr(""),
	Trial:                 ptr(false),
	Overwrite:             ptr(false),
	UnderscoreEvalVersion: ptr(false),
	ScanDirs:              []string{"lib", "bin", "script"},
	ExecutableDirs:        []string{"bin", "script"},
	IncludeExtensions:     []string{"pm", "pl", "pod"},
	ExcludeBasenames:      []string{"*.bak", "*~", "blib", "local", ".build"},
	ExcludePatterns:       []string{},
	UseGitignore:          ptr(true),
	SkipMainModule:        ptr(false),
	MainModule:            ptr(""),
	Jobs:                  ptr(0),
}

// loadConfig builds the effective configuration: defaults, then the user
// config file (or customConfigPath), then the project file in projectDir.
func loadConfig(customConfigPath, projectDir string) (Config, error) {
	cfg := defaultConfig
	isCustomPath := customConfigPath != ""

	configFile := ""
	if isCustomPath {
		abs, err := filepath.Abs(customConfigPath)
		if err != nil {
			slog.Error("Could not determine absolute path for custom config file.", "path", customConfigPath, "error", err)
			return defaultConfig, fmt.Errorf("invalid custom config path '%s': %w", customConfigPath, err)
		}
		configFile = abs
		slog.Debug("Attempting to load configuration from custom path.", "resolved_absolute_path", configFile)
	} else if homeDir, err := os.UserHomeDir(); err != nil {
		slog.Warn("Could not determine user home directory. Skipping user config.", "error", err)
	} else {
		configFile = filepath.Join(homeDir, ".config", "ourpkgversion", "config.toml")
		slog.Debug("Attempting to load configuration from default path.", "path", configFile)
	}

	if configFile != "" {
		loaded, found, err := readConfigFile(configFile)
		switch {
		case err != nil:
			return defaultConfig, err
		case !found && isCustomPath:
			slog.Error("Specified configuration file not found.", "path_read_attempted", configFile)
			return defaultConfig, fmt.Errorf("specified configuration file '%s' not found", configFile)
		case !found:
			slog.Debug("No user config file found, using default settings.", "path", configFile)
		default:
			cfg = overlayConfig(cfg, loaded)
		}
	}

	if projectDir != "" {
		projectFile := filepath.Join(projectDir, projectConfigName)
		loaded, found, err := readConfigFile(projectFile)
		if err != nil {
			return defaultConfig, err
		}
		if found {
			cfg = overlayConfig(cfg, loaded)
		}
	}

	slog.Debug("Configuration loaded successfully.",
		"version", *cfg.Version,
		"trial", *cfg.Trial,
		"overwrite", *cfg.Overwrite,
		"underscore_eval_version", *cfg.UnderscoreEvalVersion,
		"scan_dirs", cfg.ScanDirs,
		"include_extensions", cfg.IncludeExtensions,
		"exclude_patterns", cfg.ExcludePatterns,
		"use_gitignore", *cfg.UseGitignore,
	)
	return cfg, nil
}

// readConfigFile decodes one config file. found is false when the file does
// not exist; an empty file decodes to an empty Config.
func readConfigFile(path string) (cfg Config, found bool, err error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, false, nil
		}
		slog.Error("Error reading config file.", "path", path, "error", err)
		return Config{}, false, fmt.Errorf("error reading config file '%s': %w", path, err)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		slog.Info("Configuration file is empty, nothing to apply.", "path", path)
		return Config{}, true, nil
	}

	slog.Info("Loading configuration.", "path", path)
	if err := decodeConfig(path, content, &cfg); err != nil {
		slog.Error("Error decoding config file.", "path", path, "error", err)
		return Config{}, false, err
	}
	return cfg, true, nil
}

// decodeConfig picks the decoder from the file extension: YAML for .yaml and
// .yml, TOML for everything else.
func decodeConfig(path string, content []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return fmt.Errorf("error decoding YAML from '%s': %w", path, err)
		}
		return nil
	}
	meta, err := toml.Decode(string(content), cfg)
	if err != nil {
		return fmt.Errorf("error decoding TOML from '%s': %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		slog.Warn("Unrecognized keys found in config file.", "path", path, "keys", undecoded)
	}
	return nil
}

// overlayConfig returns base with every field that is set in over replaced.
func overlayConfig(base, over Config) Config {
	out := base
	if over.Version != nil {
		out.Version = over.Version
	}
	if over.Trial != nil {
		out.Trial = over.Trial
	}
	if over.Overwrite != nil {
		out.Overwrite = over.Overwrite
	}
	if over.UnderscoreEvalVersion != nil {
		out.UnderscoreEvalVersion = over.UnderscoreEvalVersion
	}
	if over.ScanDirs != nil {
		out.ScanDirs = over.ScanDirs
	}
	if over.ExecutableDirs != nil {
		out.ExecutableDirs = over.ExecutableDirs
	}
	if over.IncludeExtensions != nil {
		out.IncludeExtensions = over.IncludeExtensions
	}
	if over.ExcludeBasenames != nil {
		out.ExcludeBasenames = over.ExcludeBasenames
	}
	if over.ExcludePatterns != nil {
		out.ExcludePatterns = over.ExcludePatterns
	}
	if over.UseGitignore != nil {
		out.UseGitignore = over.UseGitignore
	}
	if over.SkipMainModule != nil {
		out.SkipMainModule = over.SkipMainModule
	}
	if over.MainModule != nil {
		out.MainModule = over.MainModule
	}
	if over.Jobs != nil {
		out.Jobs = over.Jobs
	}
	return out
}

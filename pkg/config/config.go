// Package config loads the per-workspace configuration file and answers
// feature gating questions for the rest of the server.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is looked up directly under the workspace root.
const ConfigFileName = ".jsimports.yaml"

// FeatureConfig gates one feature behind a path allow-list.
type FeatureConfig struct {
	// Allow lists doublestar patterns, matched against workspace-relative
	// paths. Empty means the feature is disabled everywhere.
	Allow []string `yaml:"allow"`
}

// ScanConfig overrides the scanner's include and exclude patterns.
type ScanConfig struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// Workspace is the loaded configuration for one workspace.
type Workspace struct {
	// Root is the absolute workspace root path. Not read from the file.
	Root string `yaml:"-"`

	// SourceRoots are directories (relative to Root) whose modules get
	// global names. Stored absolute after loading.
	SourceRoots []string `yaml:"sourceRoots"`

	// UseGlobalModuleNames enables bare specifiers for source-root
	// modules.
	UseGlobalModuleNames bool `yaml:"useGlobalModuleNames"`

	// Environments names the global-identifier sets in effect, e.g.
	// "node", "browser", "jest". The ECMAScript baseline always applies.
	Environments []string `yaml:"environments"`

	Completion  FeatureConfig `yaml:"completion"`
	Diagnostics FeatureConfig `yaml:"diagnostics"`

	Scan ScanConfig `yaml:"scan"`
}

// defaults returns the configuration used when no file exists or loading
// fails: both features disabled, no global names.
func defaults(root string) *Workspace {
	return &Workspace{
		Root: root,
	}
}

// Load reads the workspace configuration from root. A missing file or a
// broken one falls back to defaults with both features disabled; the
// server must come up either way.
func Load(root string, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.Default()
	}

	path := filepath.Join(root, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read workspace config, using defaults",
				"path", path,
				"error", err)
		}
		return defaults(root)
	}

	cfg := &Workspace{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		logger.Warn("failed to parse workspace config, using defaults",
			"path", path,
			"error", err)
		return defaults(root)
	}
	cfg.Root = root

	if err := cfg.validate(); err != nil {
		logger.Warn("invalid workspace config, using defaults",
			"path", path,
			"error", err)
		return defaults(root)
	}

	// Source roots are stored absolute so the resolver never has to care
	// where they came from.
	for i, sr := range cfg.SourceRoots {
		if !filepath.IsAbs(sr) {
			cfg.SourceRoots[i] = filepath.Join(root, sr)
		}
	}

	logger.Info("loaded workspace config",
		"path", path,
		"source_roots", len(cfg.SourceRoots),
		"global_names", cfg.UseGlobalModuleNames,
		"environments", cfg.Environments)

	return cfg
}

// validate checks every pattern once at load time.
func (w *Workspace) validate() error {
	patternLists := map[string][]string{
		"completion.allow":  w.Completion.Allow,
		"diagnostics.allow": w.Diagnostics.Allow,
		"scan.include":      w.Scan.Include,
		"scan.exclude":      w.Scan.Exclude,
	}

	for field, patterns := range patternLists {
		for _, pattern := range patterns {
			if !doublestar.ValidatePattern(pattern) {
				return fmt.Errorf("invalid pattern in %s: %q", field, pattern)
			}
		}
	}

	for _, env := range w.Environments {
		if _, ok := environmentGlobals[env]; !ok {
			return fmt.Errorf("unknown environment: %q", env)
		}
	}

	return nil
}

// CompletionEnabled reports whether auto-import completion is allowed for
// the given absolute file path.
func (w *Workspace) CompletionEnabled(filePath string) bool {
	return w.featureEnabled(w.Completion.Allow, filePath)
}

// DiagnosticsEnabled reports whether import diagnostics are allowed for
// the given absolute file path.
func (w *Workspace) DiagnosticsEnabled(filePath string) bool {
	return w.featureEnabled(w.Diagnostics.Allow, filePath)
}

func (w *Workspace) featureEnabled(allow []string, filePath string) bool {
	if len(allow) == 0 {
		return false
	}

	rel, err := filepath.Rel(w.Root, filePath)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range allow {
		if matched, _ := doublestar.PathMatch(pattern, rel); matched {
			return true
		}
	}
	return false
}

// Globals returns the set of ambient global identifiers in effect:
// the ECMAScript baseline plus every configured environment.
func (w *Workspace) Globals() map[string]bool {
	globals := make(map[string]bool, len(baselineGlobals))
	for _, name := range baselineGlobals {
		globals[name] = true
	}
	for _, env := range w.Environments {
		for _, name := range environmentGlobals[env] {
			globals[name] = true
		}
	}
	return globals
}

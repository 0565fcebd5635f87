package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gvsds/jar-matrix/internal/repository/archive"
)

// Config holds the settings of a jar-matrix run.
type Config struct {
	// ManifestPath is the canonical fabric.mod.json every version is derived from.
	ManifestPath string `yaml:"manifest_path"`
	// ManifestEntry is the forward-slash path of the manifest inside the archive.
	ManifestEntry string `yaml:"manifest_entry"`
	// OutputDir receives one archive per version.
	OutputDir string `yaml:"output_dir"`
	// ScratchDir is the parent of per-version scratch directories (empty means the system temp dir).
	ScratchDir string `yaml:"scratch_dir,omitempty"`
	// Workers is how many versions are repackaged at once.
	Workers int `yaml:"workers"`
	// Versions replaces the built-in catalog of supported versions when set.
	Versions []string `yaml:"versions,omitempty"`
}

const (
	// DefaultConfigFilename is the settings file picked up from the working directory.
	DefaultConfigFilename = "jar-matrix.yaml"

	// DefaultManifestPath is where the canonical manifest lives in a Fabric mod project.
	DefaultManifestPath = "src/main/resources/fabric.mod.json"

	// DefaultOutputDir is the Gradle output folder for mod archives.
	DefaultOutputDir = "./build/libs"

	// DefaultWorkers keeps runs sequential unless asked otherwise.
	DefaultWorkers = 1

	// DefaultFilePermissions is the permission of saved settings files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNegativeWorkers is returned when workers is below zero.
	errNegativeWorkers = errors.New("workers must not be negative")
	// errBlankVersion is returned when the versions list contains an empty token.
	errBlankVersion = errors.New("versions must not contain empty entries")
	// errDuplicateVersion is returned when the versions list repeats a token.
	errDuplicateVersion = errors.New("versions must be unique")
)

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		ManifestPath:  DefaultManifestPath,
		ManifestEntry: archive.DefaultManifestEntry,
		OutputDir:     DefaultOutputDir,
		Workers:       DefaultWorkers,
	}
}

// Load reads configuration from path and validates it.
// An empty path means DefaultConfigFilename, which may be absent.
func Load(path string) (*Config, error) {
	optional := path == ""
	if optional {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to path after validating it.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills blank fields with defaults and checks the rest.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if strings.TrimSpace(cfg.ManifestPath) == "" {
		cfg.ManifestPath = DefaultManifestPath
	}

	if strings.TrimSpace(cfg.ManifestEntry) == "" {
		cfg.ManifestEntry = archive.DefaultManifestEntry
	}

	if err := archive.ValidateEntryPath(cfg.ManifestEntry); err != nil {
		return fmt.Errorf("invalid manifest entry: %w", err)
	}

	if strings.TrimSpace(cfg.OutputDir) == "" {
		cfg.OutputDir = DefaultOutputDir
	}

	switch {
	case cfg.Workers < 0:
		return fmt.Errorf("%d: %w", cfg.Workers, errNegativeWorkers)
	case cfg.Workers == 0:
		cfg.Workers = DefaultWorkers
	}

	seen := make(map[string]struct{}, len(cfg.Versions))

	for _, v := range cfg.Versions {
		v = strings.TrimSpace(v)
		if v == "" {
			return errBlankVersion
		}

		if _, ok := seen[v]; ok {
			return fmt.Errorf("%s: %w", v, errDuplicateVersion)
		}

		seen[v] = struct{}{}
	}

	return nil
}

package matrix

import (
	"context"
	"fmt"
	"os"

	"github.com/gvsds/jar-matrix/internal/config"
	"github.com/gvsds/jar-matrix/internal/domain/manifest"
	"github.com/gvsds/jar-matrix/internal/domain/release"
	"github.com/gvsds/jar-matrix/internal/logger"
	"github.com/gvsds/jar-matrix/internal/repository/archive"
	"github.com/gvsds/jar-matrix/internal/version"
)

// Options contains inputs for the matrix entry point. Non-empty fields override the settings file.
type Options struct {
	// ConfigPath is an optional settings file (defaults to jar-matrix.yaml when present).
	ConfigPath string
	// InputPath is the mod archive to repackage.
	InputPath string
	// OutputDir overrides the output directory.
	OutputDir string
	// ManifestPath overrides the canonical manifest location.
	ManifestPath string
	// Version requests a single explicit version.
	Version string
	// All requests every version of the catalog.
	All bool
	// Range narrows All with a semver constraint.
	Range string
	// Workers overrides the number of versions built at once.
	Workers int
}

// Run validates the configuration, then builds every requested version.
// Configuration problems (no selection, missing or malformed manifest, bad settings)
// are returned as errors before any version is attempted; per-version failures are
// only reported in the results.
func Run(ctx context.Context, opts *Options) ([]Result, error) {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "jar-matrix")
	logger.DebugKV(ctx, "Starting", "version", version.Short())

	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	catalog, err := release.ParseVersions(cfg.Versions)
	if err != nil {
		return nil, fmt.Errorf("load version catalog: %w", err)
	}

	versions, err := catalog.Select(release.Selection{
		Version: release.Version(opts.Version),
		All:     opts.All,
		Range:   opts.Range,
	})
	if err != nil {
		return nil, err
	}

	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: range %q matches nothing", ErrNoVersions, opts.Range)
	}

	if opts.Version != "" && !catalog.Contains(versions[0]) {
		logger.WarnKV(ctx, "Version is not in the supported catalog, building anyway", "version", opts.Version)
	}

	canonical, err := manifest.Load(cfg.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("load canonical manifest: %w", err)
	}

	repackager, err := archive.NewRepackager(
		archive.WithManifestEntry(cfg.ManifestEntry),
		archive.WithScratchRoot(cfg.ScratchDir),
	)
	if err != nil {
		return nil, err
	}

	builder, err := NewBuilder(canonical, repackager, cfg.Workers)
	if err != nil {
		return nil, err
	}

	if removed, cleanErr := archive.CleanStale(ctx, cfg.ScratchDir); cleanErr != nil {
		logger.WarnKV(ctx, "Unable to clean stale scratch directories", "error", cleanErr)
	} else if removed > 0 {
		logger.InfoKV(ctx, "Cleaned stale scratch directories", "count", removed)
	}

	if err = os.MkdirAll(cfg.OutputDir, archive.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	logger.InfoKV(ctx, "Building version matrix",
		"input", opts.InputPath,
		"output_dir", cfg.OutputDir,
		"versions", len(versions),
		"workers", cfg.Workers,
	)

	results, err := builder.Build(ctx, opts.InputPath, cfg.OutputDir, versions)
	if err != nil {
		return nil, err
	}

	succeeded, total := Summary(results)
	logger.Infof(ctx, "Processing complete: %d of %d archives created", succeeded, total)

	return results, nil
}

// loadConfig reads the settings file and applies the option overrides.
func loadConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.OutputDir != "" {
		cfg.OutputDir = opts.OutputDir
	}

	if opts.ManifestPath != "" {
		cfg.ManifestPath = opts.ManifestPath
	}

	if opts.Workers != 0 {
		cfg.Workers = opts.Workers
	}

	if err = config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}

	return cfg, nil
}

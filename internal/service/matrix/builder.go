package matrix

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/gvsds/jar-matrix/internal/domain/manifest"
	"github.com/gvsds/jar-matrix/internal/domain/release"
	"github.com/gvsds/jar-matrix/internal/logger"
	"github.com/gvsds/jar-matrix/internal/repository/archive"
)

var (
	// ErrNoVersions is returned when a build is requested for an empty version list.
	ErrNoVersions = errors.New("no versions requested")
	// errNoCanonicalManifest is returned when a builder is created without a manifest.
	errNoCanonicalManifest = errors.New("canonical manifest is not set")
	// errNoRepackager is returned when a builder is created without a repackager.
	errNoRepackager = errors.New("repackager is not set")
)

// Repackager writes a copy of an archive carrying the given manifest.
type Repackager interface {
	Repackage(ctx context.Context, inputPath, outputPath string, manifest archive.Manifest) error
}

// Result is the outcome of building one version. It is never modified after creation.
type Result struct {
	// Version is the target version of this attempt.
	Version release.Version
	// OutputPath is where the archive was (or would have been) written.
	OutputPath string
	// Err is the failure cause; nil means success.
	Err error
}

// Succeeded reports whether the version was built.
func (r Result) Succeeded() bool {
	return r.Err == nil
}

// Builder runs the patch-and-repackage pipeline over a list of versions.
type Builder struct {
	// canonical is the read-only source manifest.
	canonical *manifest.Document
	// repackager produces each output archive.
	repackager Repackager
	// workers bounds how many versions are processed at once.
	workers int
}

// NewBuilder creates a Builder. Workers below one are treated as one.
func NewBuilder(canonical *manifest.Document, repackager Repackager, workers int) (*Builder, error) {
	if canonical == nil {
		return nil, errNoCanonicalManifest
	}

	if repackager == nil {
		return nil, errNoRepackager
	}

	return &Builder{
		canonical:  canonical,
		repackager: repackager,
		workers:    max(workers, 1),
	}, nil
}

// Build produces one archive per version in outputDir and returns the results in request order.
// A failing version never stops the others; the only error is ErrNoVersions.
func (b *Builder) Build(ctx context.Context, inputPath, outputDir string, versions []release.Version) ([]Result, error) {
	if len(versions) == 0 {
		return nil, ErrNoVersions
	}

	var (
		results = make([]Result, len(versions))
		group   errgroup.Group
		base    = filepath.Base(inputPath)
	)

	group.SetLimit(b.workers)

	for i, version := range versions {
		outputPath := filepath.Join(outputDir, OutputName(base, version))

		if err := ctx.Err(); err != nil {
			results[i] = Result{Version: version, OutputPath: outputPath, Err: fmt.Errorf("skipped: %w", err)}
			continue
		}

		group.Go(func() error {
			results[i] = b.buildVersion(ctx, inputPath, outputPath, version)
			return nil
		})
	}

	_ = group.Wait()

	return results, nil
}

// buildVersion patches the manifest and repackages the archive for one version.
func (b *Builder) buildVersion(ctx context.Context, inputPath, outputPath string, version release.Version) Result {
	ctx = logger.WithKV(ctx, "version", version.String())
	result := Result{Version: version, OutputPath: outputPath}

	patched, err := manifest.Patch(b.canonical, version)
	if err != nil {
		result.Err = fmt.Errorf("patch manifest: %w", err)
		logger.ErrorKV(ctx, "Error processing version", "error", result.Err)

		return result
	}

	if err = b.repackager.Repackage(ctx, inputPath, outputPath, patched); err != nil {
		result.Err = err
		logger.ErrorKV(ctx, "Error processing version", "error", err)

		return result
	}

	logger.InfoKV(ctx, "Successfully created archive", "path", outputPath)

	return result
}

// OutputName derives the archive name for version from the input base name:
// the version follows the first dot-separated segment and the remaining
// segments are joined with "_" (mod.fabric.jar -> mod-1.20.1.fabric_jar).
func OutputName(base string, version release.Version) string {
	segments := strings.Split(base, ".")

	name := segments[0] + "-" + string(version)
	if len(segments) > 1 {
		name += "." + strings.Join(segments[1:], "_")
	}

	return name
}

// Summary counts successful results.
func Summary(results []Result) (succeeded, total int) {
	for _, r := range results {
		if r.Succeeded() {
			succeeded++
		}
	}

	return succeeded, len(results)
}

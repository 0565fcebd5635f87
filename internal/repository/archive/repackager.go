package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gvsds/jar-matrix/internal/logger"
)

const (
	// DefaultManifestEntry is where the patched manifest is written inside the archive.
	DefaultManifestEntry = "META-INF/fabric.mod.json"

	// DefaultFileMode is the mode of extracted files and archive entries.
	DefaultFileMode os.FileMode = 0o644
	// DefaultDirMode is the mode of created directories.
	DefaultDirMode os.FileMode = 0o755

	// contentsDirname holds the extracted tree inside a scratch directory.
	contentsDirname = "contents"
	// stagedFilename is the new archive written inside a scratch directory.
	stagedFilename = "staged.jar"
)

var (
	// ErrArchiveNotFound is returned when the input archive does not exist.
	ErrArchiveNotFound = errors.New("input archive not found")
	// ErrArchiveWrite wraps any I/O failure during extraction, serialization or writing.
	ErrArchiveWrite = errors.New("archive write failed")
	// errUnsafeEntry is returned for entries that would escape the extraction root.
	errUnsafeEntry = errors.New("entry escapes archive root")
	// errInvalidManifestEntry is returned for a manifest entry path that is not a clean relative path.
	errInvalidManifestEntry = errors.New("manifest entry must be a relative forward-slash path")
)

// entryTime is stamped on every written entry so identical inputs produce identical archives.
//
//nolint:gochecknoglobals // Constant value; time.Time cannot be a const.
var entryTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Manifest is a document that can serialize itself to the bytes stored in the archive.
type Manifest interface {
	Encode() ([]byte, error)
}

// Repackager rewrites the manifest entry of archives.
type Repackager struct {
	// manifestEntry is the forward-slash path of the manifest inside archives.
	manifestEntry string
	// scratchRoot is the parent of per-call scratch directories ("" means os.TempDir()).
	scratchRoot string
}

// Option configures a Repackager.
type Option func(*Repackager)

// WithManifestEntry overrides the in-archive manifest path.
func WithManifestEntry(entry string) Option {
	return func(r *Repackager) {
		if entry != "" {
			r.manifestEntry = entry
		}
	}
}

// WithScratchRoot sets the directory under which scratch directories are created.
func WithScratchRoot(dir string) Option {
	return func(r *Repackager) {
		r.scratchRoot = dir
	}
}

// NewRepackager creates a Repackager; the manifest entry is validated here.
func NewRepackager(opts ...Option) (*Repackager, error) {
	r := &Repackager{
		manifestEntry: DefaultManifestEntry,
	}

	for _, opt := range opts {
		opt(r)
	}

	if err := ValidateEntryPath(r.manifestEntry); err != nil {
		return nil, err
	}

	return r, nil
}

// ValidateEntryPath checks that entry is a clean, relative, forward-slash archive path.
func ValidateEntryPath(entry string) error {
	if entry == "" ||
		strings.Contains(entry, `\`) ||
		path.IsAbs(entry) ||
		path.Clean(entry) != entry ||
		entry == ".." || strings.HasPrefix(entry, "../") {
		return fmt.Errorf("%q: %w", entry, errInvalidManifestEntry)
	}

	return nil
}

// ManifestEntry returns the in-archive manifest path.
func (r *Repackager) ManifestEntry() string {
	return r.manifestEntry
}

// Repackage writes to outputPath a copy of the archive at inputPath whose manifest entry
// holds the serialized manifest. All other entries are copied byte for byte.
func (r *Repackager) Repackage(ctx context.Context, inputPath, outputPath string, manifest Manifest) (err error) {
	if _, err = os.Stat(inputPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", inputPath, ErrArchiveNotFound)
		}

		return fmt.Errorf("%w: stat %s: %w", ErrArchiveWrite, inputPath, err)
	}

	scratch, err := newScratchDir(r.scratchRoot)
	if err != nil {
		return fmt.Errorf("%w: create scratch directory: %w", ErrArchiveWrite, err)
	}

	defer func() {
		if removeErr := os.RemoveAll(scratch); removeErr != nil {
			logger.WarnKV(ctx, "Unable to remove scratch directory", "path", scratch, "error", removeErr)
		}
	}()

	logger.DebugKV(ctx, "Staging archive", "scratch", scratch)

	contents := filepath.Join(scratch, contentsDirname)

	if err = extract(ctx, inputPath, contents); err != nil {
		return fmt.Errorf("%w: extract %s: %w", ErrArchiveWrite, inputPath, err)
	}

	if err = r.writeManifest(contents, manifest); err != nil {
		return fmt.Errorf("%w: %w", ErrArchiveWrite, err)
	}

	staged := filepath.Join(scratch, stagedFilename)

	checksum, err := writeArchive(ctx, contents, staged)
	if err != nil {
		return fmt.Errorf("%w: write archive: %w", ErrArchiveWrite, err)
	}

	if err = install(staged, outputPath, checksum); err != nil {
		return fmt.Errorf("%w: install %s: %w", ErrArchiveWrite, outputPath, err)
	}

	return nil
}

// writeManifest serializes the manifest into the extracted tree, replacing any existing entry.
func (r *Repackager) writeManifest(root string, manifest Manifest) error {
	data, err := manifest.Encode()
	if err != nil {
		return fmt.Errorf("serialize manifest: %w", err)
	}

	target := filepath.Join(root, filepath.FromSlash(r.manifestEntry))

	if err = os.MkdirAll(filepath.Dir(target), DefaultDirMode); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}

	if err = os.WriteFile(target, data, DefaultFileMode); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

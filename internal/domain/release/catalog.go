package release

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version identifies a target platform release, e.g. "1.20.1".
type Version string

// String returns the raw version token.
func (v Version) String() string {
	return string(v)
}

// validate checks that v is non-empty and safe to embed in a file name.
func (v Version) validate() error {
	if v == "" {
		return ErrEmptyVersion
	}

	if strings.ContainsAny(string(v), forbiddenVersionChars) {
		return fmt.Errorf("%q: %w", string(v), ErrInvalidVersion)
	}

	return nil
}

var (
	// ErrNoSelection is returned when neither an explicit version nor the whole catalog was requested.
	ErrNoSelection = errors.New("you must specify either a version or all versions")
	// ErrEmptyVersion is returned for blank version tokens.
	ErrEmptyVersion = errors.New("version must not be empty")
	// ErrDuplicateVersion is returned when a catalog lists the same version twice.
	ErrDuplicateVersion = errors.New("duplicate version in catalog")
	// ErrEmptyCatalog is returned when a catalog has no versions at all.
	ErrEmptyCatalog = errors.New("version catalog is empty")
	// ErrInvalidRange is returned when a range filter is not a valid semver constraint.
	ErrInvalidRange = errors.New("invalid version range")
	// ErrInvalidVersion is returned for tokens that cannot be part of a file name.
	ErrInvalidVersion = errors.New("version must not contain path separators")
)

// forbiddenVersionChars may not appear in a version, which is embedded in output file names.
const forbiddenVersionChars = "/\\\x00"

// supportedVersions is the built-in catalog, oldest first.
//
//nolint:gochecknoglobals // Read-only; only copies leave the package.
var supportedVersions = []Version{
	"1.18.1", "1.18.2",
	"1.19.0", "1.19.1", "1.19.2", "1.19.3", "1.19.4",
	"1.20.0", "1.20.1", "1.20.2", "1.20.3", "1.20.4", "1.20.5", "1.20.6",
	"1.21.0", "1.21.1", "1.21.2", "1.21.3", "1.21.4", "1.21.5", "1.21.6",
	"1.21.7", "1.21.8", "1.21.9", "1.21.10",
}

// Catalog is an immutable ordered list of supported versions.
type Catalog struct {
	versions []Version
}

// Selection describes which versions a run targets.
type Selection struct {
	// Version is a single explicit target; it wins over All.
	Version Version
	// All requests every version of the catalog.
	All bool
	// Range optionally narrows All to versions matching a semver constraint (e.g. ">=1.20, <1.21").
	Range string
}

// DefaultCatalog returns the built-in catalog of supported versions.
func DefaultCatalog() *Catalog {
	return &Catalog{versions: slices.Clone(supportedVersions)}
}

// NewCatalog builds a catalog from the given versions, keeping their order.
// An empty input yields the built-in catalog.
func NewCatalog(versions []Version) (*Catalog, error) {
	if len(versions) == 0 {
		return DefaultCatalog(), nil
	}

	seen := make(map[Version]struct{}, len(versions))
	cloned := make([]Version, 0, len(versions))

	for _, v := range versions {
		v = Version(strings.TrimSpace(string(v)))
		if err := v.validate(); err != nil {
			return nil, err
		}

		if _, ok := seen[v]; ok {
			return nil, fmt.Errorf("%s: %w", v, ErrDuplicateVersion)
		}

		seen[v] = struct{}{}
		cloned = append(cloned, v)
	}

	return &Catalog{versions: cloned}, nil
}

// ParseVersions converts raw strings into a catalog.
func ParseVersions(raw []string) (*Catalog, error) {
	versions := make([]Version, 0, len(raw))
	for _, s := range raw {
		versions = append(versions, Version(s))
	}

	return NewCatalog(versions)
}

// Versions returns a copy of the catalog contents in order.
func (c *Catalog) Versions() []Version {
	return slices.Clone(c.versions)
}

// Len returns the number of versions in the catalog.
func (c *Catalog) Len() int {
	return len(c.versions)
}

// Contains reports whether v is part of the catalog.
func (c *Catalog) Contains(v Version) bool {
	return slices.Contains(c.versions, v)
}

// Filter returns the catalog versions satisfying the semver constraint, in catalog order.
// Versions that are not valid semver never match.
func (c *Catalog) Filter(constraint string) ([]Version, error) {
	constraints, err := semver.NewConstraint(constraint)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidRange, constraint, err)
	}

	matched := make([]Version, 0, len(c.versions))

	for _, v := range c.versions {
		parsed, parseErr := semver.NewVersion(string(v))
		if parseErr != nil {
			continue
		}

		if constraints.Check(parsed) {
			matched = append(matched, v)
		}
	}

	return matched, nil
}

// Select resolves a Selection into the ordered list of versions to build.
func (c *Catalog) Select(sel Selection) ([]Version, error) {
	if v := Version(strings.TrimSpace(string(sel.Version))); v != "" {
		if err := v.validate(); err != nil {
			return nil, err
		}

		return []Version{v}, nil
	}

	if !sel.All {
		return nil, ErrNoSelection
	}

	if strings.TrimSpace(sel.Range) == "" {
		return c.Versions(), nil
	}

	return c.Filter(sel.Range)
}

package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gvsds/jar-matrix/internal/domain/release"
)

const (
	// DependsKey is the top-level field holding dependency constraints.
	DependsKey = "depends"
	// MinecraftKey is the dependency whose constraint is pinned per version.
	MinecraftKey = "minecraft"
)

// ErrMalformedManifest indicates the canonical manifest is not a JSON object
// or lacks the depends.minecraft field.
var ErrMalformedManifest = errors.New("malformed manifest")

// Document is an ordered manifest tree rooted at a JSON object.
type Document struct {
	root *object
}

// Load reads and validates the canonical manifest at path.
func Load(path string) (*Document, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	doc, err := Parse(contents)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return doc, nil
}

// Parse decodes a JSON manifest and checks that depends.minecraft exists.
func Parse(data []byte) (*Document, error) {
	value, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedManifest, err)
	}

	root, ok := value.(*object)
	if !ok {
		return nil, fmt.Errorf("%w: top level is not an object", ErrMalformedManifest)
	}

	doc := &Document{root: root}
	if _, err := doc.dependsObject(); err != nil {
		return nil, err
	}

	return doc, nil
}

// Clone returns a deep copy sharing no nodes with d.
func (d *Document) Clone() *Document {
	root, _ := cloneValue(d.root).(*object)
	return &Document{root: root}
}

// Constraint returns the current depends.minecraft value.
// Non-string constraints (Fabric also accepts arrays) are reported as their JSON form.
func (d *Document) Constraint() (string, error) {
	depends, err := d.dependsObject()
	if err != nil {
		return "", err
	}

	value, _ := depends.get(MinecraftKey)
	if s, ok := value.(string); ok {
		return s, nil
	}

	encoded, err := encode(value)
	if err != nil {
		return "", err
	}

	return string(encoded), nil
}

// Lookup returns the string or number value at the given key path.
func (d *Document) Lookup(path ...string) (string, bool) {
	var node any = d.root

	for _, key := range path {
		obj, ok := node.(*object)
		if !ok {
			return "", false
		}

		if node, ok = obj.get(key); !ok {
			return "", false
		}
	}

	switch v := node.(type) {
	case string:
		return v, true
	case fmt.Stringer:
		return v.String(), true
	default:
		return "", false
	}
}

// Encode serializes the document as JSON with two-space indentation,
// keeping the source key order.
func (d *Document) Encode() ([]byte, error) {
	return encode(d.root)
}

// dependsObject returns the depends object after checking it holds a minecraft entry.
func (d *Document) dependsObject() (*object, error) {
	value, ok := d.root.get(DependsKey)
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", ErrMalformedManifest, DependsKey)
	}

	depends, ok := value.(*object)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an object", ErrMalformedManifest, DependsKey)
	}

	if _, ok = depends.get(MinecraftKey); !ok {
		return nil, fmt.Errorf("%w: missing %q", ErrMalformedManifest, DependsKey+"."+MinecraftKey)
	}

	return depends, nil
}

// Patch returns a copy of canonical whose depends.minecraft constraint is pinned to version.
func Patch(canonical *Document, version release.Version) (*Document, error) {
	if canonical == nil || canonical.root == nil {
		return nil, fmt.Errorf("%w: no document", ErrMalformedManifest)
	}

	patched := canonical.Clone()

	depends, err := patched.dependsObject()
	if err != nil {
		return nil, err
	}

	depends.set(MinecraftKey, Constraint(version))

	return patched, nil
}

// Constraint renders the closed single-version range for version, e.g. "[1.20.1]".
func Constraint(version release.Version) string {
	return "[" + string(version) + "]"
}

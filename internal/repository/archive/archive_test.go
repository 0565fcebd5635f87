package archive

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

var errTestEncode = errors.New("test encode error")

// stubManifest serializes to fixed bytes.
type stubManifest []byte

// Encode returns the stub contents.
func (s stubManifest) Encode() ([]byte, error) {
	return s, nil
}

// failingManifest always fails to serialize.
type failingManifest struct{}

// Encode returns errTestEncode.
func (failingManifest) Encode() ([]byte, error) {
	return nil, errTestEncode
}

// writeZip creates a zip at path with the given entries, in order.
func writeZip(t *testing.T, path string, entries ...Entry) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.Create(e.Path)
		require.NoError(t, err)

		_, err = w.Write(e.Data)
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

// requireEmptyDir asserts that dir has no children.
func requireEmptyDir(t *testing.T, dir string) {
	t.Helper()

	children, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, children)
}

func newTestRepackager(t *testing.T, scratch string) *Repackager {
	t.Helper()

	r, err := NewRepackager(WithScratchRoot(scratch))
	require.NoError(t, err)

	return r
}

// TestRepackage_ReplacesOnlyManifest checks the round-trip property of Repackage.
func TestRepackage_ReplacesOnlyManifest(t *testing.T) {
	t.Parallel()

	var (
		dir     = t.TempDir()
		scratch = t.TempDir()
		input   = filepath.Join(dir, "mod.jar")
		output  = filepath.Join(dir, "out", "nested", "mod-1.20.1.jar")
		patched = stubManifest(`{"depends": {"minecraft": "[1.20.1]"}}`)
	)

	writeZip(t, input,
		Entry{Path: DefaultManifestEntry, Data: []byte(`{"depends": {"minecraft": "*"}}`)},
		Entry{Path: "com/gvsds/Loader.class", Data: []byte{0xCA, 0xFE, 0xBA, 0xBE, 0x00, 0x01}},
		Entry{Path: "assets/readme.txt", Data: []byte("unrelated")},
	)

	require.NoError(t, newTestRepackager(t, scratch).Repackage(context.Background(), input, output, patched))

	inputEntries, err := ReadEntries(input)
	require.NoError(t, err)

	outputEntries, err := ReadEntries(output)
	require.NoError(t, err)

	in, out := EntryMap(inputEntries), EntryMap(outputEntries)
	require.Len(t, out, len(in))

	for name, data := range in {
		require.Contains(t, out, name)

		if name == DefaultManifestEntry {
			require.Equal(t, []byte(patched), out[name])
			continue
		}

		require.Equal(t, data, out[name], name)
	}

	requireEmptyDir(t, scratch)
}

// TestRepackage_AddsMissingManifest writes the manifest even when the input has none.
func TestRepackage_AddsMissingManifest(t *testing.T) {
	t.Parallel()

	var (
		dir    = t.TempDir()
		input  = filepath.Join(dir, "mod.jar")
		output = filepath.Join(dir, "mod-1.21.0.jar")
	)

	writeZip(t, input, Entry{Path: "a.txt", Data: []byte("a")})

	r, err := NewRepackager(WithScratchRoot(t.TempDir()), WithManifestEntry("fabric.mod.json"))
	require.NoError(t, err)
	require.Equal(t, "fabric.mod.json", r.ManifestEntry())

	require.NoError(t, r.Repackage(context.Background(), input, output, stubManifest("{}")))

	entries, err := ReadEntries(output)
	require.NoError(t, err)
	require.Equal(t, []Entry{
		{Path: "a.txt", Data: []byte("a")},
		{Path: "fabric.mod.json", Data: []byte("{}")},
	}, entries)
}

// TestRepackage_Deterministic runs the same repackaging twice and compares bytes.
func TestRepackage_Deterministic(t *testing.T) {
	t.Parallel()

	var (
		dir    = t.TempDir()
		input  = filepath.Join(dir, "mod.jar")
		first  = filepath.Join(dir, "first.jar")
		second = filepath.Join(dir, "second.jar")
		r      = newTestRepackager(t, t.TempDir())
	)

	writeZip(t, input,
		Entry{Path: "z/last.txt", Data: []byte("z")},
		Entry{Path: "a/first.txt", Data: []byte("a")},
	)

	require.NoError(t, r.Repackage(context.Background(), input, first, stubManifest("m")))
	require.NoError(t, r.Repackage(context.Background(), input, second, stubManifest("m")))

	// Overwriting an existing output goes through the same path.
	require.NoError(t, r.Repackage(context.Background(), input, second, stubManifest("m")))

	a, err := os.ReadFile(first)
	require.NoError(t, err)

	b, err := os.ReadFile(second)
	require.NoError(t, err)

	require.Equal(t, a, b)
}

// TestRepackage_MissingInput reports ErrArchiveNotFound without creating anything.
func TestRepackage_MissingInput(t *testing.T) {
	t.Parallel()

	var (
		dir     = t.TempDir()
		scratch = t.TempDir()
		output  = filepath.Join(dir, "out.jar")
	)

	err := newTestRepackager(t, scratch).Repackage(context.Background(), filepath.Join(dir, "missing.jar"), output, stubManifest("{}"))
	require.ErrorIs(t, err, ErrArchiveNotFound)
	require.NotErrorIs(t, err, ErrArchiveWrite)

	_, err = os.Stat(output)
	require.ErrorIs(t, err, os.ErrNotExist)
	requireEmptyDir(t, scratch)
}

// TestRepackage_FailuresCleanScratch covers corrupt archives, unsafe entries and serialization errors.
func TestRepackage_FailuresCleanScratch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	corrupt := filepath.Join(dir, "corrupt.jar")
	require.NoError(t, os.WriteFile(corrupt, []byte("not a zip"), 0o600))

	escaping := filepath.Join(dir, "escaping.jar")
	writeZip(t, escaping, Entry{Path: "../evil.txt", Data: []byte("x")})

	valid := filepath.Join(dir, "valid.jar")
	writeZip(t, valid, Entry{Path: "a.txt", Data: []byte("a")})

	cases := map[string]struct {
		input    string
		manifest Manifest
	}{
		"corrupt archive":     {input: corrupt, manifest: stubManifest("{}")},
		"escaping entry":      {input: escaping, manifest: stubManifest("{}")},
		"unencodable content": {input: valid, manifest: failingManifest{}},
	}

	for name, tc := range cases {
		scratch := t.TempDir()
		output := filepath.Join(dir, name+".out.jar")

		err := newTestRepackager(t, scratch).Repackage(context.Background(), tc.input, output, tc.manifest)
		require.ErrorIs(t, err, ErrArchiveWrite, name)
		requireEmptyDir(t, scratch)

		_, err = os.Stat(output)
		require.ErrorIs(t, err, os.ErrNotExist, name)
	}
}

// TestRepackage_Canceled stops before touching the output when the context is done.
func TestRepackage_Canceled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "mod.jar")
	writeZip(t, input, Entry{Path: "a.txt", Data: []byte("a")})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newTestRepackager(t, t.TempDir()).Repackage(ctx, input, filepath.Join(dir, "out.jar"), stubManifest("{}"))
	require.ErrorIs(t, err, context.Canceled)
}

// TestValidateEntryPath accepts clean relative paths only.
func TestValidateEntryPath(t *testing.T) {
	t.Parallel()

	for _, ok := range []string{"fabric.mod.json", "META-INF/fabric.mod.json", "a/b/c.json"} {
		require.NoError(t, ValidateEntryPath(ok), ok)
	}

	for _, bad := range []string{"", "/abs.json", "../up.json", "..", "a/../b.json", "a//b.json", `META-INF\fabric.mod.json`, "./a.json"} {
		require.ErrorIs(t, ValidateEntryPath(bad), errInvalidManifestEntry, bad)
	}

	_, err := NewRepackager(WithManifestEntry("../x.json"))
	require.ErrorIs(t, err, errInvalidManifestEntry)
}

// TestCleanStale removes directories of dead owners and keeps the rest.
func TestCleanStale(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	// Linux caps pids at 2^22, so this owner can never be alive.
	dead := filepath.Join(root, scratchPrefix+"999999999-abc")
	alive := filepath.Join(root, scratchPrefix+strconv.Itoa(os.Getpid())+"-def")
	unrelated := filepath.Join(root, "other-dir")
	malformed := filepath.Join(root, scratchPrefix+"notapid-x")

	for _, d := range []string{dead, alive, unrelated, malformed} {
		require.NoError(t, os.MkdirAll(filepath.Join(d, contentsDirname), 0o755))
	}

	removed, err := CleanStale(context.Background(), root)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = os.Stat(dead)
	require.ErrorIs(t, err, os.ErrNotExist)

	for _, d := range []string{alive, unrelated, malformed} {
		_, err = os.Stat(d)
		require.NoError(t, err, d)
	}

	removed, err = CleanStale(context.Background(), filepath.Join(root, "missing"))
	require.NoError(t, err)
	require.Zero(t, removed)
}

// TestScratchOwner parses pids from scratch directory names.
func TestScratchOwner(t *testing.T) {
	t.Parallel()

	pid, ok := scratchOwner("jar-matrix-42-123456")
	require.True(t, ok)
	require.Equal(t, 42, pid)

	for _, name := range []string{"jar-matrix-", "jar-matrix-42", "jar-matrix--1-x", "other-42-x"} {
		_, ok = scratchOwner(name)
		require.False(t, ok, name)
	}
}

// TestInstall_ChecksumMismatch leaves no placeholder behind and keeps an existing target.
func TestInstall_ChecksumMismatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	staged := filepath.Join(dir, stagedFilename)
	require.NoError(t, os.WriteFile(staged, []byte("staged archive"), 0o600))

	wrongChecksum := make([]byte, 64)

	target := filepath.Join(dir, "out", "mod-1.20.1.jar")
	require.Error(t, install(staged, target, wrongChecksum))
	require.NoFileExists(t, target)

	existing := filepath.Join(dir, "out", "mod-1.21.0.jar")
	require.NoError(t, os.WriteFile(existing, []byte("previous build"), 0o600))
	require.Error(t, install(staged, existing, wrongChecksum))

	contents, err := os.ReadFile(existing)
	require.NoError(t, err)
	require.Equal(t, "previous build", string(contents))
}

package matrix

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gvsds/jar-matrix/internal/domain/manifest"
	"github.com/gvsds/jar-matrix/internal/domain/release"
	"github.com/gvsds/jar-matrix/internal/repository/archive"
)

var errTestRepackage = errors.New("test repackage error")

// recordingRepackager is an in-memory Repackager that records every call.
type recordingRepackager struct {
	// mu protects calls.
	mu sync.Mutex
	// calls maps output paths to the encoded manifest they received.
	calls map[string]string
	// failFor lists output base names that should fail.
	failFor map[string]error
}

// Repackage records the call and fails for configured outputs.
func (r *recordingRepackager) Repackage(_ context.Context, _, outputPath string, m archive.Manifest) error {
	encoded, err := m.Encode()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.calls == nil {
		r.calls = make(map[string]string)
	}

	r.calls[outputPath] = string(encoded)

	return r.failFor[filepath.Base(outputPath)]
}

func mustParse(t *testing.T, data string) *manifest.Document {
	t.Helper()

	doc, err := manifest.Parse([]byte(data))
	require.NoError(t, err)

	return doc
}

// TestOutputName covers the naming rule, including its multi-dot quirk.
func TestOutputName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		base    string
		version release.Version
		want    string
	}{
		{"mod.jar", "1.20.1", "mod-1.20.1.jar"},
		{"mod.fabric.jar", "1.20.1", "mod-1.20.1.fabric_jar"},
		{"foo.bar.jar", "9.9.9", "foo-9.9.9.bar_jar"},
		{"pyfabricloader-1.0.0.jar", "1.21.10", "pyfabricloader-1-1.21.10.0_0_jar"},
		{"mod", "1.19.4", "mod-1.19.4"},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, OutputName(tc.base, tc.version), tc.base)
	}
}

// TestBuild_IsolatesFailures keeps going after a failing version and preserves order.
func TestBuild_IsolatesFailures(t *testing.T) {
	t.Parallel()

	for _, workers := range []int{0, 1, 4} {
		repackager := &recordingRepackager{
			failFor: map[string]error{"mod-1.20.1.jar": errTestRepackage},
		}

		builder, err := NewBuilder(mustParse(t, `{"depends": {"minecraft": "*"}}`), repackager, workers)
		require.NoError(t, err)

		versions := []release.Version{"1.19.4", "1.20.1", "1.21.0"}

		results, err := builder.Build(context.Background(), "in/mod.jar", "out", versions)
		require.NoError(t, err)
		require.Len(t, results, len(versions))

		for i, r := range results {
			require.Equal(t, versions[i], r.Version)
			require.Equal(t, filepath.Join("out", "mod-"+string(versions[i])+".jar"), r.OutputPath)
		}

		require.True(t, results[0].Succeeded())
		require.ErrorIs(t, results[1].Err, errTestRepackage)
		require.True(t, results[2].Succeeded())

		succeeded, total := Summary(results)
		require.Equal(t, 2, succeeded)
		require.Equal(t, 3, total)

		// Each output got a manifest pinned to its own version.
		require.Len(t, repackager.calls, 3)

		for _, v := range versions {
			encoded := repackager.calls[filepath.Join("out", "mod-"+string(v)+".jar")]
			require.Contains(t, encoded, `"minecraft": "[`+string(v)+`]"`)
		}
	}
}

// TestBuild_NoVersions is a configuration error.
func TestBuild_NoVersions(t *testing.T) {
	t.Parallel()

	builder, err := NewBuilder(mustParse(t, `{"depends": {"minecraft": "*"}}`), &recordingRepackager{}, 1)
	require.NoError(t, err)

	results, err := builder.Build(context.Background(), "mod.jar", "out", nil)
	require.ErrorIs(t, err, ErrNoVersions)
	require.Nil(t, results)
}

// TestBuild_CanceledContextSkipsVersions reports every version as failed without repackaging.
func TestBuild_CanceledContextSkipsVersions(t *testing.T) {
	t.Parallel()

	repackager := &recordingRepackager{}

	builder, err := NewBuilder(mustParse(t, `{"depends": {"minecraft": "*"}}`), repackager, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := builder.Build(ctx, "mod.jar", "out", []release.Version{"1.20.1", "1.21.0"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, r := range results {
		require.ErrorIs(t, r.Err, context.Canceled)
	}

	require.Empty(t, repackager.calls)
}

// TestNewBuilder_RequiresDependencies rejects missing collaborators.
func TestNewBuilder_RequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := NewBuilder(nil, &recordingRepackager{}, 1)
	require.ErrorIs(t, err, errNoCanonicalManifest)

	_, err = NewBuilder(mustParse(t, `{"depends": {"minecraft": "*"}}`), nil, 1)
	require.ErrorIs(t, err, errNoRepackager)
}

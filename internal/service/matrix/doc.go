// Package matrix builds one mod archive per target Minecraft version.
//
// Run is the entry point used by the CLI: it loads settings and the canonical
// manifest, resolves the requested versions and hands them to a Builder. The
// Builder patches the manifest and repackages the input archive for each
// version, turning per-version failures into failed Results instead of
// stopping the batch.
package matrix

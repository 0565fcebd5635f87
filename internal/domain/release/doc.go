// Package release models the Minecraft releases a mod archive can be pinned to.
//
// A Version is an opaque token: it is compared for equality and interpolated
// into file names and constraint expressions, nothing more. A Catalog is an
// immutable ordered list of supported versions from which a Selection picks
// the versions of one run.
package release

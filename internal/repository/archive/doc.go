// Package archive repackages mod JARs (zip archives) with a replaced manifest.
//
// Every Repackage call stages its work in its own scratch directory: the
// input is extracted there, the manifest entry is overwritten, a new archive
// is written next to the extracted tree and finally installed at the output
// path with go-update. The scratch directory is removed on every exit path;
// directories orphaned by killed runs are collected by CleanStale.
package archive

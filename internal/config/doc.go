// Package config defines the jar-matrix settings and helpers to load,
// validate and save them in YAML format.
//
// A missing default settings file is not an error: every field has a default,
// and command-line flags override whatever the file provides.
package config

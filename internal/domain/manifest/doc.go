// Package manifest loads the canonical fabric.mod.json and derives
// version-pinned copies of it.
//
// The document is decoded from the JSON token stream into an ordered tree:
// objects remember their key order, numbers keep their source text, and a
// repeated key keeps its first position with its last value. Patching never
// touches the canonical document: every call works on a deep copy.
package manifest

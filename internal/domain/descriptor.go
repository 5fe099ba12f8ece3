package domain

import (
	"sort"
	"strings"
)

// Descriptor is an immutable manifest of a file-tree snapshot.
// Entries map relative, slash-separated paths to content hashes; a blank
// hash marks the path as a directory rather than a file.
type Descriptor struct {
	wholeHash string
	entries   map[string]string
}

// NewDescriptor creates a descriptor from a whole-snapshot hash and its entries.
// The entries map is copied, later changes to it are not observed.
func NewDescriptor(wholeHash string, entries map[string]string) Descriptor {
	copied := make(map[string]string, len(entries))
	for path, hash := range entries {
		copied[path] = hash
	}
	return Descriptor{wholeHash: wholeHash, entries: copied}
}

// EmptyDescriptor returns the descriptor used when no local state exists
func EmptyDescriptor() Descriptor {
	return Descriptor{entries: map[string]string{}}
}

// WholeHash returns the hash of the whole snapshot
func (d Descriptor) WholeHash() string {
	return d.wholeHash
}

// Entry returns the hash recorded for path
func (d Descriptor) Entry(path string) (string, bool) {
	hash, ok := d.entries[path]
	return hash, ok
}

// Paths returns all entry paths in lexical order
func (d Descriptor) Paths() []string {
	paths := make([]string, 0, len(d.entries))
	for path := range d.entries {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Entries returns a copy of the path to hash mapping
func (d Descriptor) Entries() map[string]string {
	copied := make(map[string]string, len(d.entries))
	for path, hash := range d.entries {
		copied[path] = hash
	}
	return copied
}

// Len returns the number of entries
func (d Descriptor) Len() int {
	return len(d.entries)
}

// IsEmpty reports whether this is the empty state descriptor
func (d Descriptor) IsEmpty() bool {
	return d.wholeHash == "" && len(d.entries) == 0
}

// IsDirMarker reports whether an entry hash denotes a directory
func IsDirMarker(hash string) bool {
	return strings.TrimSpace(hash) == ""
}

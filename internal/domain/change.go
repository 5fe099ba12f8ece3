package domain

import "fmt"

// ChangeKind identifies the variant of a Change
type ChangeKind int

const (
	// ChangeRemove deletes a file that only exists in the destination
	ChangeRemove ChangeKind = iota
	// ChangeRemoveDir deletes a directory that only exists in the destination
	ChangeRemoveDir
	// ChangeModify replaces a file whose hash differs from the reference
	ChangeModify
	// ChangeCreate adds a file that only exists in the reference
	ChangeCreate
)

// Priority returns the execution order of the kind, lowest first.
// Files are removed before directories so that nothing is left orphaned,
// and all removals land before any write.
func (k ChangeKind) Priority() int {
	switch k {
	case ChangeRemove:
		return 0
	case ChangeRemoveDir:
		return 1
	case ChangeModify:
		return 2
	case ChangeCreate:
		return 3
	default:
		return 99
	}
}

// String returns the log name of the kind
func (k ChangeKind) String() string {
	switch k {
	case ChangeRemove:
		return "remove"
	case ChangeRemoveDir:
		return "remove_dir"
	case ChangeModify:
		return "modify"
	case ChangeCreate:
		return "create"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Change is a single operation needed to bring the destination to the reference state
type Change struct {
	// Kind selects which of the fields below are meaningful
	Kind ChangeKind

	// Path is the relative path being operated on
	Path string

	// OldHash is the destination hash (Modify, Remove)
	OldHash string

	// NewHash is the reference hash (Create, Modify)
	NewHash string
}

// Create returns a change adding path with hash newHash
func Create(path, newHash string) Change {
	return Change{Kind: ChangeCreate, Path: path, NewHash: newHash}
}

// Modify returns a change replacing the content of path
func Modify(path, oldHash, newHash string) Change {
	return Change{Kind: ChangeModify, Path: path, OldHash: oldHash, NewHash: newHash}
}

// Remove returns a change deleting the file at path
func Remove(path, oldHash string) Change {
	return Change{Kind: ChangeRemove, Path: path, OldHash: oldHash}
}

// RemoveDir returns a change deleting the directory at path
func RemoveDir(path string) Change {
	return Change{Kind: ChangeRemoveDir, Path: path}
}

// Priority returns the execution order of the change
func (c Change) Priority() int {
	return c.Kind.Priority()
}

// String renders the change for logs and plan output
func (c Change) String() string {
	switch c.Kind {
	case ChangeCreate:
		return fmt.Sprintf("create %s (%s)", c.Path, c.NewHash)
	case ChangeModify:
		return fmt.Sprintf("modify %s (%s -> %s)", c.Path, c.OldHash, c.NewHash)
	case ChangeRemove:
		return fmt.Sprintf("remove %s (%s)", c.Path, c.OldHash)
	case ChangeRemoveDir:
		return fmt.Sprintf("remove_dir %s", c.Path)
	default:
		return fmt.Sprintf("%s %s", c.Kind, c.Path)
	}
}

// SyncPlan represents the ordered changes between a destination and the reference
type SyncPlan struct {
	// DestinationHash is the whole hash of the local state descriptor
	DestinationHash string

	// ReferenceHash is the whole hash of the reference descriptor
	ReferenceHash string

	// Changes to execute in order
	Changes []Change

	// Stats summary
	Stats SyncPlanStats
}

// UpToDate reports whether the destination already matches the reference
func (p *SyncPlan) UpToDate() bool {
	return p.DestinationHash == p.ReferenceHash
}

// SyncPlanStats provides summary statistics for a sync plan
type SyncPlanStats struct {
	Total      int
	Creates    int
	Modifies   int
	Removes    int
	DirRemoves int
}

// FileInfo represents metadata about a stored path
type FileInfo struct {
	// Path is the relative path from the storage root
	Path string

	// IsDir is true for directories
	IsDir bool

	// Size in bytes (0 for directories)
	Size int64
}

// IsFile returns true if this is a regular file
func (f FileInfo) IsFile() bool {
	return !f.IsDir
}

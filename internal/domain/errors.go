package domain

import "errors"

// Storage errors
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrPermissionDenied indicates insufficient permissions or a path outside the root
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotDirectory indicates expected a directory but got a file
	ErrNotDirectory = errors.New("not a directory")

	// ErrNotFile indicates expected a file but got a directory
	ErrNotFile = errors.New("not a file")
)

// Descriptor errors
var (
	// ErrDescriptorParse indicates descriptor bytes could not be decoded
	ErrDescriptorParse = errors.New("malformed descriptor")

	// ErrUnsupportedVersion indicates the descriptor schema version is unknown
	ErrUnsupportedVersion = errors.New("unsupported descriptor version")

	// ErrInvalidPath indicates a descriptor entry that is not a clean relative path
	ErrInvalidPath = errors.New("invalid descriptor path")

	// ErrReferenceParse indicates the bundled reference descriptor is missing or malformed.
	// It is never recovered from.
	ErrReferenceParse = errors.New("reference descriptor unavailable")
)

// Sync errors
var (
	// ErrSyncInProgress indicates another sync is already running
	ErrSyncInProgress = errors.New("sync already in progress")
)

// Config errors
var (
	// ErrConfigNotFound indicates config file not found
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalid indicates config file is malformed
	ErrConfigInvalid = errors.New("invalid config")
)

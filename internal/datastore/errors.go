package datastore

import "github.com/frootsnoops/brickbin/internal/errors"

// Sentinel errors for datastore write operations. Lookup reads return
// nil for missing rows instead of these.
var (
	// ErrBinNotFound indicates a write against a bin that does not exist.
	ErrBinNotFound = errors.NewStd("bin location not found")

	// ErrPartNotFound indicates a write against a part that does not exist.
	ErrPartNotFound = errors.NewStd("part not found")

	// ErrScanNotFound indicates a write against a scan that does not exist.
	ErrScanNotFound = errors.NewStd("scan not found")

	// ErrSchemaAhead indicates the on-disk schema version is newer than
	// this binary supports.
	ErrSchemaAhead = errors.NewStd("database schema is newer than this binary")

	// ErrMigrationFailed indicates a migration step could not be applied.
	// This is fatal at startup in production builds.
	ErrMigrationFailed = errors.NewStd("database migration failed")
)

// Package blob re-exports the raw-payload store abstractions for stable
// imports by the rest of the catalogue.
package blob

import (
	"imagingcore/internal/blob/core"
)

type (
	// Driver identifies a payload backend driver.
	Driver = core.Driver
	// PutOptions configures a payload write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored payload metadata.
	Info = core.Info
	// Store is the interface for payload storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

// ErrUnsupported indicates an operation is not supported by a driver.
var ErrUnsupported = core.ErrUnsupported
